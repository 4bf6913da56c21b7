package stackbak

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// ExecRunner is the production CommandRunner. It invokes the tool
// directly (no shell) and captures stdout/stderr separately so callers
// can treat stdout as an artifact payload and stderr as error detail.
type ExecRunner struct{}

func NewExecRunner() ExecRunner {
	return ExecRunner{}
}

func (ExecRunner) Run(ctx context.Context, cmd Command) ([]byte, []byte, error) {
	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		execCmd.Stdin = cmd.Stdin
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	if err := execCmd.Run(); err != nil {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("%s: %w", cmd.Name, err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}
