package stackbak

import "strings"

// BackupType distinguishes a self-contained snapshot from one that depends
// on an earlier full backup.
type BackupType string

const (
	BackupTypeFull        BackupType = "full"
	BackupTypeIncremental BackupType = "incremental"
)

const (
	// ManifestFilename is the manifest's name inside a backup directory.
	ManifestFilename = "manifest.json"

	// ChecksumPrefix tags manifest checksums with the digest algorithm.
	ChecksumPrefix = "sha256:"

	// EncryptedSuffix is appended to artifacts encrypted with gpg.
	EncryptedSuffix = ".gpg"

	// BackupIDLayout is the time layout used for backup directory names.
	// Lexicographic order matches chronological order.
	BackupIDLayout = "20060102_150405"
)

// BackupEntry describes one stored artifact inside a backup directory.
// The checksum is always computed over the stored bytes, so encrypted
// backups can be verified without the passphrase.
type BackupEntry struct {
	SourceName       string `json:"source_name"`
	StoredFilename   string `json:"stored_filename"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	Checksum         string `json:"checksum"`
	IsEncrypted      bool   `json:"is_encrypted"`
}

// Manifest is the single source of truth for a backup directory. It is
// written once, as the last step of a backup run, and never mutated.
type Manifest struct {
	BackupID         string        `json:"backup_id"`
	BackupType       BackupType    `json:"backup_type"`
	Timestamp        string        `json:"timestamp"`
	BaseBackupID     string        `json:"base_backup_id,omitempty"`
	PreviousBackupID string        `json:"previous_backup_id,omitempty"`
	Encrypted        bool          `json:"encrypted"`
	Entries          []BackupEntry `json:"entries"`
	ConfigEntry      *BackupEntry  `json:"config_entry,omitempty"`
	TotalSizeBytes   int64         `json:"total_size_bytes"`
	DurationSeconds  float64       `json:"duration_seconds"`

	// CreatedBy records the tool version that produced the manifest, so a
	// restore can warn when it reads a manifest from a newer major version.
	CreatedBy string `json:"created_by,omitempty"`

	// GitRefs holds per-repository HEAD hashes captured alongside the git
	// data artifact, keyed by repository path relative to the mirror root.
	GitRefs map[string]string `json:"git_refs,omitempty"`
}

// AllEntries returns the database/source entries plus the config entry,
// when present.
func (m *Manifest) AllEntries() []BackupEntry {
	entries := make([]BackupEntry, 0, len(m.Entries)+1)
	entries = append(entries, m.Entries...)
	if m.ConfigEntry != nil {
		entries = append(entries, *m.ConfigEntry)
	}
	return entries
}

// RawChecksum strips the algorithm prefix from a manifest checksum string.
func RawChecksum(checksum string) string {
	return strings.TrimPrefix(checksum, ChecksumPrefix)
}
