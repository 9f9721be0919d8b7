// Package metadiff renders the before/after metadata comparison shown to the
// user for every variant.
package metadiff

import (
	"fmt"
	"strings"

	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/params"
)

// NA stands in for any value that is absent or could not be parsed.
const NA = "N/A"

// Diff compares two snapshots. It emits one line per parameter name, in the
// given order, followed by the raw title and comment lines. It never fails.
func Diff(before, after metadata.Snapshot, names []string) string {
	oldParams := commentParams(before)
	newParams := commentParams(after)

	lines := make([]string, 0, len(names)+2)
	for _, name := range names {
		key := strings.ToLower(name)
		lines = append(lines, line(params.Label(key), lookup(oldParams, key), lookup(newParams, key)))
	}
	lines = append(lines,
		line("Title", field(before, metadata.FieldTitle), field(after, metadata.FieldTitle)),
		line("Comment", field(before, metadata.FieldComment), field(after, metadata.FieldComment)),
	)
	return strings.Join(lines, "\n")
}

// Summary is the text document delivered next to variant index.
func Summary(index int, report string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Variant #%d metadata changes\n", index)
	b.WriteString(strings.Repeat("-", 32))
	b.WriteByte('\n')
	b.WriteString(report)
	if !strings.HasSuffix(report, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

func line(label, oldV, newV string) string {
	if oldV == newV {
		return fmt.Sprintf("%s unchanged: %s", label, oldV)
	}
	return fmt.Sprintf("%s changed: %s → %s", label, oldV, newV)
}

// commentParams returns nil when the comment is absent or malformed, which
// makes every lookup degrade to NA.
func commentParams(s metadata.Snapshot) map[string]string {
	comment, ok := s.Comment()
	if !ok {
		return nil
	}
	m, err := params.ParseComment(comment)
	if err != nil {
		return nil
	}
	return m
}

func lookup(m map[string]string, key string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return NA
}

func field(s metadata.Snapshot, name string) string {
	if v, ok := s.Get(name); ok && v != "" {
		return v
	}
	return NA
}
