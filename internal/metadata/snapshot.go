package metadata

// Snapshot field names.
const (
	FieldTitle   = "title"
	FieldComment = "comment"
)

// Snapshot holds the metadata fields read from a file at one point in time.
// Absent keys mean the file carried no such field; a nil Snapshot is empty.
type Snapshot map[string]string

func (s Snapshot) Get(field string) (string, bool) {
	v, ok := s[field]
	return v, ok
}

func (s Snapshot) Title() (string, bool)   { return s.Get(FieldTitle) }
func (s Snapshot) Comment() (string, bool) { return s.Get(FieldComment) }

// Empty reports whether no field is present.
func (s Snapshot) Empty() bool { return len(s) == 0 }

func (s Snapshot) setNonEmpty(field, value string) {
	if value != "" {
		s[field] = value
	}
}
