package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

var testArtifacts = []Artifact{
	{SourceName: "postgres", Filename: "postgres_all.sql"},
	{SourceName: "mysql", Filename: "mysql_all.sql"},
	{SourceName: "mongodb", Filename: "mongodb_dump.archive"},
	{SourceName: "config", Filename: ".env.backup", Config: true},
}

func writeUnitFile(t *testing.T, dir string, name string, size int) {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestGenerateCountsOnlyPresentArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeUnitFile(t, dir, "postgres_all.sql", 10)
	writeUnitFile(t, dir, "mysql_all.sql", 20)
	writeUnitFile(t, dir, "mongodb_dump.archive", 5)
	// No config artifact: the source failed upstream.

	m, err := Generate(dir, testArtifacts, Params{
		BackupID:   "20260823_120000",
		BackupType: stackbak.BackupTypeFull,
		StartTime:  time.Now().Add(-2 * time.Second),
	})
	require.NoError(t, err)

	assert.Len(t, m.Entries, 3)
	assert.Nil(t, m.ConfigEntry)
	assert.Equal(t, int64(35), m.TotalSizeBytes)
	assert.False(t, m.Encrypted)
	assert.Greater(t, m.DurationSeconds, 0.0)
	for _, entry := range m.Entries {
		assert.Regexp(t, `^sha256:[0-9a-f]{64}$`, entry.Checksum)
		assert.False(t, entry.IsEncrypted)
		assert.Equal(t, entry.OriginalFilename, entry.StoredFilename)
	}
}

func TestGeneratePrefersEncryptedArtifact(t *testing.T) {
	dir := t.TempDir()
	writeUnitFile(t, dir, "postgres_all.sql.gpg", 128)

	m, err := Generate(dir, testArtifacts, Params{
		BackupID:   "20260823_120000",
		BackupType: stackbak.BackupTypeFull,
		Encrypted:  true,
		StartTime:  time.Now(),
	})
	require.NoError(t, err)

	require.Len(t, m.Entries, 1)
	entry := m.Entries[0]
	assert.Equal(t, "postgres_all.sql.gpg", entry.StoredFilename)
	assert.Equal(t, "postgres_all.sql", entry.OriginalFilename)
	assert.True(t, entry.IsEncrypted)
}

func TestGeneratePutsConfigInItsOwnSlot(t *testing.T) {
	dir := t.TempDir()
	writeUnitFile(t, dir, ".env.backup", 40)

	m, err := Generate(dir, testArtifacts, Params{
		BackupID:   "20260823_120000",
		BackupType: stackbak.BackupTypeFull,
		StartTime:  time.Now(),
	})
	require.NoError(t, err)

	assert.Empty(t, m.Entries)
	require.NotNil(t, m.ConfigEntry)
	assert.Equal(t, "config", m.ConfigEntry.SourceName)
	assert.Equal(t, int64(40), m.TotalSizeBytes)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeUnitFile(t, dir, "postgres_all.sql", 10)

	m, err := Generate(dir, testArtifacts, Params{
		BackupID:         "20260823_120000",
		BackupType:       stackbak.BackupTypeIncremental,
		BaseBackupID:     "20260820_090000",
		PreviousBackupID: "20260822_090000",
		StartTime:        time.Now(),
		CreatedBy:        "stackbak v1.2.0",
		GitRefs:          map[string]string{"devteam/app.git": "0123abcd"},
	})
	require.NoError(t, err)
	require.NoError(t, Save(dir, m))

	// No temp file may survive the rename.
	_, err = os.Stat(filepath.Join(dir, stackbak.ManifestFilename+".tmp"))
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)
}

func TestLoadMissingManifestIsCorrupt(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, stackbak.ErrManifestCorrupt))
}

func TestLoadRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, stackbak.ManifestFilename), []byte("{not json"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, stackbak.ErrManifestCorrupt))
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	for name, body := range map[string]string{
		"no backup_id":        `{"backup_type":"full","encrypted":false,"entries":[]}`,
		"no encrypted":        `{"backup_id":"20260823_120000","backup_type":"full","entries":[]}`,
		"bad backup_type":     `{"backup_id":"20260823_120000","backup_type":"weekly","encrypted":false,"entries":[]}`,
		"no entries":          `{"backup_id":"20260823_120000","backup_type":"full","encrypted":false}`,
		"incremental no base": `{"backup_id":"20260823_120000","backup_type":"incremental","encrypted":false,"entries":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, stackbak.ManifestFilename), []byte(body), 0644))
			_, err := Load(dir)
			require.Error(t, err)
			assert.True(t, errors.Is(err, stackbak.ErrManifestCorrupt))
		})
	}
}
