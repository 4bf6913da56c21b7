package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

func writeUnit(t *testing.T, root string, id string, m *stackbak.Manifest) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if m != nil {
		m.BackupID = id
		if m.BackupType == "" {
			m.BackupType = stackbak.BackupTypeFull
		}
		if m.Entries == nil {
			m.Entries = []stackbak.BackupEntry{}
		}
		require.NoError(t, Save(dir, m))
	}
}

func TestListUnitsSortsAndFiltersEntries(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260102_090000", nil)
	writeUnit(t, root, "20260101_090000", nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".tmp"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "archive"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "20260103_090000"), []byte("a file, not a unit"), 0644))

	units, err := ListUnits(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101_090000", "20260102_090000"}, units)
}

func TestListUnitsMissingRootIsEmpty(t *testing.T) {
	units, err := ListUnits(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestFindLatestFullSkipsIncrementals(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260101_090000", &stackbak.Manifest{BackupType: stackbak.BackupTypeFull})
	writeUnit(t, root, "20260102_090000", &stackbak.Manifest{BackupType: stackbak.BackupTypeFull})
	writeUnit(t, root, "20260103_090000", &stackbak.Manifest{
		BackupType:   stackbak.BackupTypeIncremental,
		BaseBackupID: "20260102_090000",
	})

	id, err := FindLatestFull(root)
	require.NoError(t, err)
	assert.Equal(t, "20260102_090000", id)
}

func TestFindLatestFullSkipsCorruptManifests(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260101_090000", &stackbak.Manifest{BackupType: stackbak.BackupTypeFull})
	writeUnit(t, root, "20260102_090000", nil)
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "20260102_090000", stackbak.ManifestFilename),
		[]byte("{truncated"), 0644))

	id, err := FindLatestFull(root)
	require.NoError(t, err)
	assert.Equal(t, "20260101_090000", id)
}

func TestFindLatestFullFallsBackToNewestDirectory(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260101_090000", nil)
	writeUnit(t, root, "20260102_090000", nil)

	id, err := FindLatestFull(root)
	require.NoError(t, err)
	assert.Equal(t, "20260102_090000", id, "with no readable manifest anywhere, the newest unit counts as full")
}

func TestFindLatestFullEmptyRoot(t *testing.T) {
	id, err := FindLatestFull(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestFindLatestFullNoFullAmongReadable(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260103_090000", &stackbak.Manifest{
		BackupType:   stackbak.BackupTypeIncremental,
		BaseBackupID: "20260101_090000",
	})

	id, err := FindLatestFull(root)
	require.NoError(t, err)
	assert.Equal(t, "", id, "a readable incremental manifest disables the fallback")
}

func TestChainForFullIsItself(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260101_090000", &stackbak.Manifest{BackupType: stackbak.BackupTypeFull})

	chain, err := ChainFor(root, "20260101_090000")
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101_090000"}, chain)
}

func TestChainForIncrementalIncludesBaseAndIntermediates(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260101_090000", &stackbak.Manifest{BackupType: stackbak.BackupTypeFull})
	writeUnit(t, root, "20260102_090000", &stackbak.Manifest{
		BackupType:   stackbak.BackupTypeIncremental,
		BaseBackupID: "20260101_090000",
	})
	writeUnit(t, root, "20260103_090000", &stackbak.Manifest{
		BackupType:       stackbak.BackupTypeIncremental,
		BaseBackupID:     "20260101_090000",
		PreviousBackupID: "20260102_090000",
	})
	// A newer full backup must not enter the chain.
	writeUnit(t, root, "20260104_090000", &stackbak.Manifest{BackupType: stackbak.BackupTypeFull})

	chain, err := ChainFor(root, "20260103_090000")
	require.NoError(t, err)
	assert.Equal(t, []string{"20260101_090000", "20260102_090000", "20260103_090000"}, chain)
}

func TestChainForMissingBaseIsCorrupt(t *testing.T) {
	root := t.TempDir()
	writeUnit(t, root, "20260103_090000", &stackbak.Manifest{
		BackupType:   stackbak.BackupTypeIncremental,
		BaseBackupID: "20260101_090000",
	})

	_, err := ChainFor(root, "20260103_090000")
	require.Error(t, err)
}
