// Package verify re-derives checksums for a backup directory and checks
// them against its manifest. Verification reads the stored bytes only,
// so encrypted backups are verifiable without the passphrase, and it
// never mutates anything.
package verify

import (
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/checksum"
	"github.com/stackmeld/stackbak/pkg/manifest"
)

// FileState is the per-file verification outcome.
type FileState string

const (
	StateOK       FileState = "ok"
	StateMissing  FileState = "missing"
	StateMismatch FileState = "checksum_mismatch"
	StateError    FileState = "error"
)

// FileStatus pairs one stored file with its verification outcome.
type FileStatus struct {
	Filename string
	Source   string
	State    FileState
	Detail   string
}

// Report aggregates a whole-unit verification. Success is all-or-nothing
// but the report itemizes every file so an operator can act on the one
// that broke.
type Report struct {
	BackupID      string
	FilesVerified int
	FilesFailed   int
	FilesTotal    int
	Files         []FileStatus
	Errors        []string
}

// Success reports whether every file verified clean.
func (r *Report) Success() bool {
	return r.FilesFailed == 0 && r.FilesVerified == r.FilesTotal
}

// Unit verifies one backup directory. A missing or malformed manifest is
// the only error return; everything after that is captured in the report.
func Unit(dir string) (*Report, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}

	report := &Report{BackupID: m.BackupID}
	for _, entry := range m.AllEntries() {
		status := checkEntry(dir, entry)
		report.Files = append(report.Files, status)
		report.FilesTotal++
		if status.State == StateOK {
			report.FilesVerified++
		} else {
			report.FilesFailed++
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", status.Filename, status.Detail))
		}
	}
	return report, nil
}

func checkEntry(dir string, entry stackbak.BackupEntry) FileStatus {
	status := FileStatus{Filename: entry.StoredFilename, Source: entry.SourceName}

	path := filepath.Join(dir, entry.StoredFilename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		status.State = StateMissing
		status.Detail = "file missing from backup directory"
		return status
	}

	sum, err := checksum.Sum(path)
	if err != nil {
		status.State = StateError
		status.Detail = err.Error()
		return status
	}

	if sum != stackbak.RawChecksum(entry.Checksum) {
		status.State = StateMismatch
		status.Detail = fmt.Sprintf("stored bytes hash to sha256:%s, manifest says %s", sum, entry.Checksum)
		return status
	}

	status.State = StateOK
	return status
}
