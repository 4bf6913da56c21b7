package stackbak

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Error taxonomy. Per-source and per-file errors are collected by the
// orchestrators and never propagated past their originating step; only
// directory-level filesystem errors and manifest parse errors abort a run.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrManifestCorrupt   = errors.New("manifest missing or corrupt")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrFilesystem        = errors.New("filesystem error")
)

// SecretProvider hands out per-service credentials before dump/restore
// subprocesses are invoked. Implementations map their own not-found /
// unauthorized / unreachable failures onto ErrSourceUnavailable so the
// orchestrator can degrade the affected source to "skipped".
type SecretProvider interface {
	GetSecret(service string, field string) (string, error)
}

// Command describes one external tool invocation. Credentials travel in
// Env or Stdin, never in Args, so they cannot leak via process listings.
type Command struct {
	Name  string
	Args  []string
	Env   []string
	Stdin io.Reader
}

// CommandRunner executes external dump/restore tools. The indirection
// exists so adapters can be tested without docker or the dump utilities
// installed.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (stdout []byte, stderr []byte, err error)
}

// SourceAdapter produces and consumes one data source's backup artifact.
type SourceAdapter interface {
	// Name is the logical source name recorded in the manifest.
	Name() string

	// ArtifactName is the plaintext filename this adapter writes into a
	// backup directory.
	ArtifactName() string

	// Dump writes the source's artifact into destDir. A credential or
	// connection failure is reported wrapped in ErrSourceUnavailable.
	Dump(ctx context.Context, destDir string) error

	// Restore replays a plaintext artifact back into the service.
	Restore(ctx context.Context, artifactPath string) error
}

// SourceStatus is the per-source outcome of a backup or restore run.
type SourceStatus string

const (
	SourceOK      SourceStatus = "ok"
	SourceSkipped SourceStatus = "skipped"
	SourceFailed  SourceStatus = "failed"
)

// SourceResult records one adapter's outcome. Partial success is a
// first-class state: a failing adapter produces a result, not an abort.
type SourceResult struct {
	Source string
	Status SourceStatus
	Err    error
}

func (r SourceResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", r.Source, r.Status, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Source, r.Status)
}
