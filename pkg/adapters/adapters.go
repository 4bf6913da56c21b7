// Package adapters contains one SourceAdapter per data source in the
// stack. Each adapter knows how to produce its dump artifact into a
// backup directory and how to replay that artifact back into the running
// service. Credentials are fetched from the SecretProvider immediately
// before the subprocess runs and travel via the process environment or
// stdin, never on the command line.
package adapters

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

// composeExec builds a `docker compose exec -T` invocation for a service.
// envNames are passed name-only to `-e`, so docker resolves their values
// from the process environment rather than the command line.
func composeExec(composeDir string, service string, envNames []string, command ...string) stackbak.Command {
	args := []string{"compose", "--project-directory", composeDir, "exec", "-T"}
	for _, name := range envNames {
		args = append(args, "-e", name)
	}
	args = append(args, service)
	args = append(args, command...)
	return stackbak.Command{Name: "docker", Args: args}
}

// dockerExec builds a plain `docker exec` invocation for containers that
// are addressed by name instead of compose service.
func dockerExec(container string, envNames []string, command ...string) stackbak.Command {
	args := []string{"exec", "-i"}
	for _, name := range envNames {
		args = append(args, "-e", name)
	}
	args = append(args, container)
	args = append(args, command...)
	return stackbak.Command{Name: "docker", Args: args}
}

func writeArtifact(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing artifact %s: %w", filepath.Base(path), err)
	}
	return nil
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}
