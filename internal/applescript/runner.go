package applescript

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one AppleScript body. Implementations must treat a
// non-zero exit and a failure to launch identically: both are errors.
type Runner interface {
	Run(ctx context.Context, script string) error
}

// OsaRunner runs scripts through the osascript binary, feeding the script on
// stdin to avoid shell interpretation of quotes and newlines.
type OsaRunner struct{}

// Run executes the script and returns an error describing stderr output on
// failure. The process is deliberately started without the context: killing
// osascript mid-action can leave the Messages UI half-open, so a launched
// attempt always completes or fails on its own. Cancellation takes effect
// between attempts, in the executor's backoff sleep.
func (OsaRunner) Run(ctx context.Context, script string) error {
	cmd := exec.Command("osascript", "-")
	cmd.Stdin = strings.NewReader(script)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("osascript: %s: %w", msg, err)
		}
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}
