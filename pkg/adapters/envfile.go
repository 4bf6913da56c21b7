package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

const envArtifact = ".env.backup"

// EnvFile captures the stack's environment file. It is the one adapter
// that runs no subprocess; dump and restore are plain file copies.
type EnvFile struct {
	path string
}

func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

func (e *EnvFile) Name() string         { return "config" }
func (e *EnvFile) ArtifactName() string { return envArtifact }

func (e *EnvFile) Dump(ctx context.Context, destDir string) error {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s does not exist", stackbak.ErrSourceUnavailable, e.path)
		}
		return fmt.Errorf("reading %s: %w", e.path, err)
	}
	return writeArtifact(filepath.Join(destDir, envArtifact), data)
}

// Restore writes the captured file back to its configured location via a
// sibling temp file and rename, so a crash cannot leave a truncated
// environment file behind.
func (e *EnvFile) Restore(ctx context.Context, artifactPath string) error {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(artifactPath), err)
	}

	tmp := e.path + ".restore-tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", e.path, err)
	}
	return nil
}
