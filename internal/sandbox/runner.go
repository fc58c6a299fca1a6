// Package sandbox executes candidate code in a subprocess with a hard
// timeout. It is a convenience for local testing, not an isolation boundary.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rotisserie/eris"
)

// ExecResult captures one code execution.
type ExecResult struct {
	Success  bool   `json:"success"`
	Output   string `json:"output"`
	Error    string `json:"error"`
	Duration int64  `json:"execution_time_ms"`
}

// Runner executes Python source in a subprocess.
type Runner struct {
	pythonPath string
}

// NewRunner creates a Runner. If pythonPath is empty, "python3" is used.
func NewRunner(pythonPath string) *Runner {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	return &Runner{pythonPath: pythonPath}
}

// Run writes code to a temp file and executes it with the given timeout.
// A timeout is reported as a failed ExecResult, not an error; errors are
// reserved for failures to launch at all.
func (r *Runner) Run(ctx context.Context, code string, timeout time.Duration) (*ExecResult, error) {
	f, err := os.CreateTemp("", "exec-*.py")
	if err != nil {
		return nil, eris.Wrap(err, "sandbox: create temp file")
	}
	defer os.Remove(f.Name())

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return nil, eris.Wrap(err, "sandbox: write temp file")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "sandbox: close temp file")
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.pythonPath, f.Name())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &ExecResult{
			Success:  false,
			Error:    fmt.Sprintf("Execution timed out after %g seconds", timeout.Seconds()),
			Duration: elapsed,
		}, nil
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &ExecResult{
				Success:  false,
				Output:   stdout.String(),
				Error:    stderr.String(),
				Duration: elapsed,
			}, nil
		}
		return nil, eris.Wrap(runErr, "sandbox: run code")
	}

	return &ExecResult{
		Success:  true,
		Output:   stdout.String(),
		Duration: elapsed,
	}, nil
}
