package inference

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

const (
	maxLineBytes = 1 << 20
	waitDelay    = 2 * time.Second
)

// Invocation describes one launch of the model process.
type Invocation struct {
	Command string
	Args    []string
	Dir     string
	// Env is appended to the parent environment.
	Env []string
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, inv Invocation, onStdout, onStderr func(string)) error
}

// ExitError reports a process that ran and exited with a nonzero status.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, inv Invocation, onStdout, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, inv.Command, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(cmd.Environ(), inv.Env...)
	}
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		if err := readLines(r, maxLineBytes, forward); err != nil {
			once.Do(func() {
				scanErr = err
			})
			// Keep draining so the process never blocks on a full pipe.
			_, _ = io.Copy(io.Discard, r)
		}
	}

	wg.Add(2)
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)
	wg.Wait()

	waitErr := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("wait command: %w", waitErr)
	}
	if scanErr != nil {
		return fmt.Errorf("scan output: %w", scanErr)
	}
	return nil
}

// readLines forwards each line of r without its terminator. Lines longer than
// limit bytes are truncated to limit and reading continues with the next line.
func readLines(r io.Reader, limit int, forward func(string)) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 4096)
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if len(line) > 0 && forward != nil {
				forward(string(line))
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if room := limit - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if isPrefix {
			continue
		}
		if forward != nil {
			forward(string(line))
		}
		line = line[:0]
	}
}
