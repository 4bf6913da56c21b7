// Package manifest builds, persists and loads the metadata record that
// makes a backup directory auditable, and resolves full/incremental
// relationships between the directories on disk.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/checksum"
)

// Artifact names one logical source's expected plaintext file inside a
// backup directory. Config marks the entry that lands in the manifest's
// config_entry slot instead of the entries list.
type Artifact struct {
	SourceName string
	Filename   string
	Config     bool
}

// Params carries everything Generate cannot derive from the directory
// contents.
type Params struct {
	BackupID         string
	BackupType       stackbak.BackupType
	BaseBackupID     string
	PreviousBackupID string
	Encrypted        bool
	StartTime        time.Time
	CreatedBy        string
	GitRefs          map[string]string
}

// Generate assembles a manifest for dir by inspecting which artifacts
// actually exist. For each artifact the encrypted form takes precedence
// over the plaintext when the run was encrypted; artifacts missing in
// both forms are skipped, reflecting an upstream per-source failure.
// Checksums are computed over the stored bytes.
func Generate(dir string, artifacts []Artifact, p Params) (*stackbak.Manifest, error) {
	m := &stackbak.Manifest{
		BackupID:         p.BackupID,
		BackupType:       p.BackupType,
		Timestamp:        p.StartTime.UTC().Format(time.RFC3339),
		BaseBackupID:     p.BaseBackupID,
		PreviousBackupID: p.PreviousBackupID,
		Encrypted:        p.Encrypted,
		Entries:          []stackbak.BackupEntry{},
		CreatedBy:        p.CreatedBy,
		GitRefs:          p.GitRefs,
	}

	for _, artifact := range artifacts {
		entry, ok, err := buildEntry(dir, artifact, p.Encrypted)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if artifact.Config {
			m.ConfigEntry = &entry
		} else {
			m.Entries = append(m.Entries, entry)
		}
		m.TotalSizeBytes += entry.SizeBytes
	}

	m.DurationSeconds = time.Since(p.StartTime).Seconds()
	return m, nil
}

func buildEntry(dir string, artifact Artifact, encrypted bool) (stackbak.BackupEntry, bool, error) {
	stored := artifact.Filename
	isEncrypted := false
	if encrypted {
		if _, err := os.Stat(filepath.Join(dir, artifact.Filename+stackbak.EncryptedSuffix)); err == nil {
			stored = artifact.Filename + stackbak.EncryptedSuffix
			isEncrypted = true
		}
	}

	path := filepath.Join(dir, stored)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return stackbak.BackupEntry{}, false, nil
	}
	if err != nil {
		return stackbak.BackupEntry{}, false, fmt.Errorf("stat %s: %w", stored, err)
	}

	sum, err := checksum.Sum(path)
	if err != nil {
		return stackbak.BackupEntry{}, false, fmt.Errorf("hashing %s: %w", stored, err)
	}

	return stackbak.BackupEntry{
		SourceName:       artifact.SourceName,
		StoredFilename:   stored,
		OriginalFilename: artifact.Filename,
		SizeBytes:        info.Size(),
		Checksum:         stackbak.ChecksumPrefix + sum,
		IsEncrypted:      isEncrypted,
	}, true, nil
}

// Save persists the manifest into dir via a sibling temp file and rename,
// so a crash mid-write cannot leave a half-written manifest that a later
// verify would read as corrupt-but-present.
func Save(dir string, m *stackbak.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	data = append(data, '\n')

	tmp := filepath.Join(dir, stackbak.ManifestFilename+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, stackbak.ManifestFilename)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming manifest into place: %w", err)
	}
	return nil
}

// Load reads and validates the manifest inside dir. Any failure mode
// (missing file, bad JSON, missing required fields) is reported wrapped
// in ErrManifestCorrupt so callers can treat them uniformly.
func Load(dir string) (*stackbak.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, stackbak.ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stackbak.ErrManifestCorrupt, err)
	}

	var m stackbak.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", stackbak.ErrManifestCorrupt, err)
	}

	// A bool cannot distinguish an absent key from false, and treating a
	// manifest without the field as unencrypted would quietly verify it.
	var required struct {
		Encrypted *bool `json:"encrypted"`
	}
	if err := json.Unmarshal(data, &required); err != nil || required.Encrypted == nil {
		return nil, fmt.Errorf("%w: missing encrypted", stackbak.ErrManifestCorrupt)
	}

	if m.BackupID == "" {
		return nil, fmt.Errorf("%w: missing backup_id", stackbak.ErrManifestCorrupt)
	}
	if m.BackupType != stackbak.BackupTypeFull && m.BackupType != stackbak.BackupTypeIncremental {
		return nil, fmt.Errorf("%w: invalid backup_type %q", stackbak.ErrManifestCorrupt, m.BackupType)
	}
	if m.Entries == nil {
		return nil, fmt.Errorf("%w: missing entries", stackbak.ErrManifestCorrupt)
	}
	if m.BackupType == stackbak.BackupTypeIncremental && m.BaseBackupID == "" {
		return nil, fmt.Errorf("%w: incremental backup without base_backup_id", stackbak.ErrManifestCorrupt)
	}
	return &m, nil
}
