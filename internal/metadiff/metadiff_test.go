package metadiff

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
	"github.com/mykytaterentiev/metaOfmBot/internal/params"
)

func variantSnapshot(i int, s params.Set) metadata.Snapshot {
	return metadata.Snapshot{
		metadata.FieldTitle:   fmt.Sprintf("Meta Variant #%d", i),
		metadata.FieldComment: params.FormatComment(s),
	}
}

func TestDiffIdenticalSnapshotsUnchanged(t *testing.T) {
	snap := variantSnapshot(1, params.Set{Brightness: 1.01, Sharpen: 0.99, Temperature: 1, Contrast: 1.05, Gamma: 0.95})
	report := Diff(snap, snap, params.Names())

	lines := strings.Split(report, "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", len(lines), report)
	}
	for _, l := range lines {
		if !strings.Contains(l, " unchanged: ") {
			t.Fatalf("expected unchanged line, got %q", l)
		}
	}
	if lines[0] != "Brightness unchanged: 1.010" {
		t.Fatalf("unexpected first line %q", lines[0])
	}
}

func TestDiffFromUntaggedSource(t *testing.T) {
	s := params.Set{Brightness: 1.023, Sharpen: 0.981, Temperature: 1.004, Contrast: 0.955, Gamma: 1.077}
	report := Diff(metadata.Snapshot{}, variantSnapshot(1, s), params.Names())

	want := []string{
		"Brightness changed: N/A → 1.023",
		"Sharpen changed: N/A → 0.981",
		"Temperature changed: N/A → 1.004",
		"Contrast changed: N/A → 0.955",
		"Gamma changed: N/A → 1.077",
		"Title changed: N/A → Meta Variant #1",
		"Comment changed: N/A → " + params.FormatComment(s),
	}
	if got := strings.Split(report, "\n"); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected report:\n%s\nwant:\n%s", report, strings.Join(want, "\n"))
	}
}

func TestDiffMalformedCommentDegradesToNA(t *testing.T) {
	before := metadata.Snapshot{metadata.FieldComment: "this is not a parameter list"}
	after := metadata.Snapshot{metadata.FieldComment: "Brightness=1.050"}
	report := Diff(before, after, params.Names())

	lines := strings.Split(report, "\n")
	if lines[0] != "Brightness changed: N/A → 1.050" {
		t.Fatalf("unexpected brightness line %q", lines[0])
	}
	if lines[1] != "Sharpen unchanged: N/A" {
		t.Fatalf("expected missing key to degrade, got %q", lines[1])
	}
	if lines[5] != "Title unchanged: N/A" {
		t.Fatalf("unexpected title line %q", lines[5])
	}
	if !strings.HasPrefix(lines[6], "Comment changed: this is not a parameter list → ") {
		t.Fatalf("expected raw comment comparison, got %q", lines[6])
	}
}

func TestDiffLegacyTempKey(t *testing.T) {
	before := metadata.Snapshot{metadata.FieldComment: "Brightness=1.000, Temp=0.950"}
	report := Diff(before, before, []string{params.Temperature})
	if !strings.HasPrefix(report, "Temperature unchanged: 0.950\n") {
		t.Fatalf("expected alias to resolve, got %q", report)
	}
}

func TestSummary(t *testing.T) {
	got := Summary(3, "Gamma unchanged: 1.000")
	if !strings.HasPrefix(got, "Variant #3 metadata changes\n") || !strings.HasSuffix(got, "Gamma unchanged: 1.000\n") {
		t.Fatalf("unexpected summary %q", got)
	}
}
