// Package assist pipes prompts to a local AI CLI and captures the answer.
package assist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrNotInstalled = errors.New("assist: command not installed")
	ErrTimeout      = errors.New("assist: command timed out")
	ErrEmptyPrompt  = errors.New("assist: empty prompt")
)

// Result carries one completed run. A non-zero exit is a Result, not an
// error: the CLI answered, just unhappily.
type Result struct {
	OK         bool   `json:"ok"`
	Code       int    `json:"code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMS int64  `json:"durationMs"`
}

// Runner invokes one configured AI CLI. Args are passed as a vector; no
// shell ever sees the prompt.
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

func New(command string, args []string, timeout time.Duration) *Runner {
	return &Runner{Command: command, Args: args, Timeout: timeout}
}

// Run pipes the prompt to the command's stdin and waits for it to exit,
// collecting stdout and stderr separately.
func (r *Runner) Run(ctx context.Context, prompt string) (Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return Result{}, ErrEmptyPrompt
	}
	if _, err := exec.LookPath(r.Command); err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrNotInstalled, r.Command)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	res := Result{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMS: time.Since(start).Milliseconds(),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, ErrTimeout
	case ctx.Err() != nil:
		return res, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.Code = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", r.Command, err)
	}

	res.OK = true
	return res, nil
}
