package crypt

import (
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	require.False(t, store.Exists())

	require.NoError(t, store.Save([]byte("correct-horse")))
	require.True(t, store.Exists())

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "passphrase file must be owner-only")
	}

	pass, err := store.Load()
	require.NoError(t, err)

	buf, err := pass.open()
	require.NoError(t, err)
	defer buf.Destroy()
	assert.Equal(t, "correct-horse", buf.String())
}

func TestStoreRejectsShortPassphrase(t *testing.T) {
	store := NewStore(t.TempDir())
	err := store.Save([]byte("short"))
	require.Error(t, err)
	assert.False(t, store.Exists())
}

func TestStoreLoadTrimsTrailingNewline(t *testing.T) {
	store := NewStore(t.TempDir())
	require.NoError(t, os.WriteFile(store.Path(), []byte("correct-horse\n"), 0600))

	pass, err := store.Load()
	require.NoError(t, err)

	buf, err := pass.open()
	require.NoError(t, err)
	defer buf.Destroy()
	assert.Equal(t, "correct-horse", buf.String())
}

func TestGetOrCreatePromptsOnlyWhenMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	prompted := 0
	prompt := func() ([]byte, error) {
		prompted++
		return []byte("first-run-pass"), nil
	}

	pass, err := store.GetOrCreate(prompt)
	require.NoError(t, err)
	require.NotNil(t, pass)
	assert.Equal(t, 1, prompted)
	assert.True(t, store.Exists())

	_, err = store.GetOrCreate(prompt)
	require.NoError(t, err)
	assert.Equal(t, 1, prompted, "existing passphrase must not prompt again")
}
