package inference

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestReadLinesTruncatesOverlongLines(t *testing.T) {
	input := strings.Repeat("x", 200_000) + "\nnext\nlast"
	var lines []string
	if err := readLines(strings.NewReader(input), 1000, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("readLines returned error: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != strings.Repeat("x", 1000) {
		t.Fatalf("overlong line not truncated to limit: len=%d", len(lines[0]))
	}
	if lines[1] != "next" || lines[2] != "last" {
		t.Fatalf("unexpected trailing lines: %q", lines[1:])
	}
}

func TestReadLinesReportsReadErrors(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))
	var lines []string
	err := readLines(r, 1000, func(line string) { lines = append(lines, line) })
	if !errors.Is(err, boom) {
		t.Fatalf("expected read error, got %v", err)
	}
	if len(lines) != 1 || lines[0] != "partial" {
		t.Fatalf("expected partial line forwarded, got %q", lines)
	}
}
