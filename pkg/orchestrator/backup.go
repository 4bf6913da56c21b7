package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/catalog"
	"github.com/stackmeld/stackbak/pkg/crypt"
	"github.com/stackmeld/stackbak/pkg/manifest"
	"github.com/stackmeld/stackbak/pkg/utils"
	"github.com/stackmeld/stackbak/pkg/version"
)

// RunBackup creates a new backup directory, dumps every source into it,
// optionally encrypts the artifacts, and writes the manifest last. The
// returned results hold one entry per source; a failing source never
// aborts the run. The error return is reserved for filesystem-level
// failures.
//
// start names the backup: the directory ID is start formatted with
// BackupIDLayout, so callers can share the same timestamp with their
// run logging.
//
// Requesting an incremental backup when no full backup exists silently
// downgrades to full. Requesting encryption without a passphrase
// silently downgrades to an unencrypted run; both downgrades are logged.
func (o *Orchestrator) RunBackup(ctx context.Context, start time.Time, backupType stackbak.BackupType, encrypt bool, passphrase *crypt.Passphrase) (*stackbak.Manifest, []stackbak.SourceResult, error) {
	step := o.console.Step("backup")

	if err := o.checkFreeSpace(); err != nil {
		return nil, nil, err
	}

	if encrypt && (passphrase == nil || o.gpg == nil) {
		step.Err("no passphrase available, writing unencrypted backup")
		encrypt = false
	}

	// Lineage is resolved before the new directory exists, so the new
	// unit can never be mistaken for its own base.
	var baseID, previousID string
	previousID, err := manifest.LatestUnit(o.cfg.BackupsRoot)
	if err != nil {
		return nil, nil, err
	}
	if backupType == stackbak.BackupTypeIncremental {
		baseID, err = manifest.FindLatestFull(o.cfg.BackupsRoot)
		if err != nil {
			return nil, nil, err
		}
		if baseID == "" {
			step.Log("no full backup found, running a full backup instead")
			backupType = stackbak.BackupTypeFull
		}
	}

	backupID := start.Format(stackbak.BackupIDLayout)
	dir := filepath.Join(o.cfg.BackupsRoot, backupID)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("%w: creating backup directory: %v", stackbak.ErrFilesystem, err)
	}
	step.Logf("backup %s (%s) started", backupID, backupType)

	results := o.dumpSources(ctx, dir)

	if encrypt {
		o.encryptArtifacts(ctx, dir, results, passphrase)
	}

	m, err := manifest.Generate(dir, o.artifacts(), manifest.Params{
		BackupID:         backupID,
		BackupType:       backupType,
		BaseBackupID:     baseID,
		PreviousBackupID: previousID,
		Encrypted:        encrypt,
		StartTime:        start,
		CreatedBy:        version.Stamp(),
		GitRefs:          o.collectGitRefs(),
	})
	if err != nil {
		return nil, results, fmt.Errorf("%w: %v", stackbak.ErrFilesystem, err)
	}
	if err := manifest.Save(dir, m); err != nil {
		return nil, results, fmt.Errorf("%w: %v", stackbak.ErrFilesystem, err)
	}

	step.Progress(100).Logf("backup %s finished: %d entries, %s",
		backupID, len(m.AllEntries()), utils.PrettyPrintDiskSize(m.TotalSizeBytes))

	o.record(catalog.Record{
		BackupID:   backupID,
		Kind:       catalog.RunBackup,
		BackupType: string(m.BackupType),
		Encrypted:  m.Encrypted,
		Success:    countFailed(results) == 0,
		SizeBytes:  m.TotalSizeBytes,
		Duration:   time.Since(start),
		Detail:     resultSummary(results),
		StartedAt:  start,
	})
	return m, results, nil
}

func (o *Orchestrator) dumpSources(ctx context.Context, dir string) []stackbak.SourceResult {
	all := o.allAdapters()
	var results []stackbak.SourceResult
	for i, adapter := range all {
		step := o.console.Step("dump:" + adapter.Name())
		step.Progress(i * 100 / len(all))

		err := adapter.Dump(ctx, dir)
		switch {
		case err == nil:
			step.Logf("%s captured", adapter.ArtifactName())
			results = append(results, stackbak.SourceResult{Source: adapter.Name(), Status: stackbak.SourceOK})
		case errors.Is(err, stackbak.ErrSourceUnavailable):
			step.Errf("skipped: %v", err)
			results = append(results, stackbak.SourceResult{Source: adapter.Name(), Status: stackbak.SourceSkipped, Err: err})
		default:
			step.Errf("failed: %v", err)
			results = append(results, stackbak.SourceResult{Source: adapter.Name(), Status: stackbak.SourceFailed, Err: err})
		}
	}
	return results
}

// encryptArtifacts encrypts every artifact that was produced. A per-file
// failure downgrades that one result; the plaintext survives and is
// checksummed as-is by the manifest step.
func (o *Orchestrator) encryptArtifacts(ctx context.Context, dir string, results []stackbak.SourceResult, passphrase *crypt.Passphrase) {
	step := o.console.Step("encrypt")
	for i := range results {
		if results[i].Status != stackbak.SourceOK {
			continue
		}
		adapter := o.adapterFor(results[i].Source)
		if adapter == nil {
			continue
		}
		path := filepath.Join(dir, adapter.ArtifactName())
		if _, err := o.gpg.Encrypt(ctx, path, passphrase); err != nil {
			step.Errf("%s: %v", adapter.ArtifactName(), err)
			results[i].Status = stackbak.SourceFailed
			results[i].Err = err
			continue
		}
		step.Logf("%s encrypted", adapter.ArtifactName())
	}
}

func (o *Orchestrator) collectGitRefs() map[string]string {
	for _, adapter := range o.adapters {
		lister, ok := adapter.(RefLister)
		if !ok {
			continue
		}
		refs, err := lister.HeadRefs()
		if err != nil {
			o.console.Step("gitrefs").Errf("collecting repository refs: %v", err)
			return nil
		}
		return refs
	}
	return nil
}

func (o *Orchestrator) record(r catalog.Record) {
	if o.history == nil {
		return
	}
	if err := o.history.Add(r); err != nil {
		o.console.Step("history").Errf("recording run: %v", err)
	}
}

func countFailed(results []stackbak.SourceResult) int {
	n := 0
	for _, r := range results {
		if r.Status == stackbak.SourceFailed {
			n++
		}
	}
	return n
}

func resultSummary(results []stackbak.SourceResult) string {
	summary := ""
	for _, r := range results {
		if summary != "" {
			summary += "; "
		}
		summary += r.String()
	}
	return summary
}
