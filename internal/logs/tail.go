package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// Options selects which lines Tail returns.
type Options struct {
	// Offset is the byte position to read from. Negative means "the last
	// Limit lines".
	Offset int64
	Limit  int
	// Match keeps only lines containing this substring (e.g. a request ID).
	Match string
	// Wait bounds how long Tail polls for new lines when none are available.
	// Zero returns immediately.
	Wait time.Duration
}

// Result holds the selected lines and the offset to resume from.
type Result struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from the log file at path. A missing file yields an empty
// result at offset zero so callers can wait for the daemon to create it.
func Tail(ctx context.Context, path string, opts Options) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, nil
		}
		return Result{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return Result{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	match := strings.TrimSpace(opts.Match)
	wait := max(opts.Wait, 0)

	var result Result
	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit, match)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated underneath us; start over.
			offset = 0
		}
		result.Lines, result.Offset, err = linesFrom(path, offset, match)
	}
	if err != nil {
		return result, err
	}
	if len(result.Lines) > 0 || wait == 0 {
		return result, nil
	}
	return poll(ctx, path, result.Offset, match, wait)
}

func lastLines(path string, limit int, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	offset, err := scanLines(file, match, func(line string) {
		ring[next] = line
		next = (next + 1) % limit
		count = min(count+1, limit)
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	start := (next - count + limit) % limit
	for i := range count {
		lines[i] = ring[(start+i)%limit]
	}
	return lines, offset, nil
}

func linesFrom(path string, offset int64, match string) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	consumed, err := scanLines(file, match, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, 0, err
	}
	return lines, offset + consumed, nil
}

// scanLines feeds complete lines from r to emit and returns the number of
// bytes consumed. A trailing partial line is left for the next call.
func scanLines(r io.Reader, match string, emit func(string)) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(line))
		text := strings.TrimRight(line, "\r\n")
		if len(text) > maxLineLength {
			text = text[:maxLineLength]
		}
		if match == "" || strings.Contains(text, match) {
			emit(text)
		}
	}
}

func poll(ctx context.Context, path string, offset int64, match string, wait time.Duration) (Result, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := Result{Offset: offset}
	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
		lines, next, err := linesFrom(path, result.Offset, match)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}
	}
}
