package pipeline

import "fmt"

// State is a step of one request's lifecycle. Transcoding and Diffing repeat
// once per variant.
type State int

const (
	Received State = iota
	Deduplicated
	Snapshotted
	Generating
	Transcoding
	Diffing
	Completed
	Aborted
)

var stateNames = [...]string{
	Received:     "received",
	Deduplicated: "deduplicated",
	Snapshotted:  "snapshotted",
	Generating:   "generating",
	Transcoding:  "transcoding",
	Diffing:      "diffing",
	Completed:    "completed",
	Aborted:      "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool { return s == Completed || s == Aborted }
