package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestPalette(t *testing.T) {
	var buf bytes.Buffer
	p := NewPalette(&buf)

	t.Run("plain output without a terminal", func(t *testing.T) {
		if got := p.OK("done"); got != "done" {
			t.Errorf("expected unstyled text, got %q", got)
		}
		if got := p.Err("boom"); got != "boom" {
			t.Errorf("expected unstyled text, got %q", got)
		}
	})

	t.Run("BPM", func(t *testing.T) {
		if got := p.BPM(128); got != "128 bpm" {
			t.Errorf("expected 128 bpm, got %q", got)
		}
		if got := p.BPM(0); got != "? bpm" {
			t.Errorf("expected unknown marker, got %q", got)
		}
	})

	t.Run("Header", func(t *testing.T) {
		lines := strings.Split(strings.TrimSuffix(p.Header("Session"), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d", len(lines))
		}
		if lines[1] != "Session" {
			t.Errorf("expected title line, got %q", lines[1])
		}
		if lines[0] != strings.Repeat("═", 39) || lines[0] != lines[2] {
			t.Errorf("expected matching rules, got %q and %q", lines[0], lines[2])
		}
	})
}
