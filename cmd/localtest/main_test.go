package main

import (
	"testing"

	"github.com/mykytaterentiev/metaOfmBot/internal/metadata"
)

func TestResolveKind(t *testing.T) {
	cases := []struct {
		flag, input string
		want        metadata.Kind
	}{
		{"", "clip.mp4", metadata.Video},
		{"", "photo.JPG", metadata.Photo},
		{"", "scan.png", metadata.Photo},
		{"photo", "weird.bin", metadata.Photo},
	}
	for _, tc := range cases {
		got, err := resolveKind(tc.flag, tc.input)
		if err != nil || got != tc.want {
			t.Fatalf("resolveKind(%q, %q) = %v, %v; want %v", tc.flag, tc.input, got, err, tc.want)
		}
	}
	if _, err := resolveKind("audio", "a.mp3"); err == nil {
		t.Fatal("expected error for unknown kind flag")
	}
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--kind", "video", "-n", "5", "--out", "/tmp/x"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if n, _ := cmd.Flags().GetInt("count"); n != 5 {
		t.Fatalf("expected count 5, got %d", n)
	}
	if err := cmd.Args(cmd, nil); err == nil {
		t.Fatal("expected missing input to be rejected")
	}
}
