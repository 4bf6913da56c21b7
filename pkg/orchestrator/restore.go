package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/catalog"
	"github.com/stackmeld/stackbak/pkg/crypt"
	"github.com/stackmeld/stackbak/pkg/manifest"
	"github.com/stackmeld/stackbak/pkg/version"
)

// RunRestore replays one backup into the running services. Encrypted
// artifacts are decrypted into a private temporary directory that is
// removed on every exit path; plaintext never lands inside the backup
// directory. One source failing to decrypt or restore does not block
// the others. The caller is responsible for confirming the operation,
// it is destructive by nature.
func (o *Orchestrator) RunRestore(ctx context.Context, backupID string, passphrase *crypt.Passphrase) ([]stackbak.SourceResult, error) {
	start := time.Now()
	dir := filepath.Join(o.cfg.BackupsRoot, backupID)

	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}
	if m.Encrypted && (passphrase == nil || o.gpg == nil) {
		return nil, fmt.Errorf("%w: backup %s is encrypted and no passphrase is available", stackbak.ErrDecryptionFailed, backupID)
	}
	if version.NewerMajor(m.CreatedBy) {
		o.console.Step("restore").Errf("backup %s was created by %q, newer than this build; proceeding anyway", backupID, m.CreatedBy)
	}

	tempDir, err := os.MkdirTemp("", "stackbak-restore-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp dir: %v", stackbak.ErrFilesystem, err)
	}
	defer os.RemoveAll(tempDir)

	var results []stackbak.SourceResult
	for _, entry := range m.AllEntries() {
		results = append(results, o.restoreEntry(ctx, dir, tempDir, entry, passphrase))
	}

	o.record(catalog.Record{
		BackupID:   backupID,
		Kind:       catalog.RunRestore,
		BackupType: string(m.BackupType),
		Encrypted:  m.Encrypted,
		Success:    countFailed(results) == 0,
		Duration:   time.Since(start),
		Detail:     resultSummary(results),
		StartedAt:  start,
	})
	return results, nil
}

func (o *Orchestrator) restoreEntry(ctx context.Context, dir string, tempDir string, entry stackbak.BackupEntry, passphrase *crypt.Passphrase) stackbak.SourceResult {
	step := o.console.Step("restore:" + entry.SourceName)

	adapter := o.adapterFor(entry.SourceName)
	if adapter == nil {
		err := fmt.Errorf("no adapter for source %q", entry.SourceName)
		step.Errf("%v", err)
		return stackbak.SourceResult{Source: entry.SourceName, Status: stackbak.SourceFailed, Err: err}
	}

	artifactPath := filepath.Join(dir, entry.StoredFilename)
	if entry.IsEncrypted {
		plainPath := filepath.Join(tempDir, entry.OriginalFilename)
		if err := o.gpg.Decrypt(ctx, artifactPath, plainPath, passphrase); err != nil {
			step.Errf("decrypt: %v", err)
			return stackbak.SourceResult{Source: entry.SourceName, Status: stackbak.SourceFailed, Err: err}
		}
		// The plaintext lives exactly as long as this one restore step.
		defer os.Remove(plainPath)
		artifactPath = plainPath
	}

	if err := adapter.Restore(ctx, artifactPath); err != nil {
		step.Errf("%v", err)
		return stackbak.SourceResult{Source: entry.SourceName, Status: stackbak.SourceFailed, Err: err}
	}
	step.Logf("%s restored", entry.SourceName)
	return stackbak.SourceResult{Source: entry.SourceName, Status: stackbak.SourceOK}
}
