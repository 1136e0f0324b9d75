package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Terminal asks confirmation and password questions on a plain text stream.
// It backs the deletion workflow when the daemon runs interactively.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal constructs a Terminal prompter over the given streams.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// Confirm prints the warning and reads a yes/no answer. Only an explicit
// "y" or "yes" counts as consent.
func (t *Terminal) Confirm(ctx context.Context, step int, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(t.out, "[%d] %s [y/N]: ", step, message)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// Password reads a password entry. The terminal echo is left untouched; the
// daemon's diagnostics use never runs on a shared screen.
func (t *Terminal) Password(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprintf(t.out, "%s: ", message)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
