package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, "backups", cfg.BackupsRoot)
	assert.Equal(t, "devuser", cfg.Sources.Postgres.User)
	assert.Equal(t, "dev-mysql", cfg.Sources.MySQL.Container)
	assert.Equal(t, 10, cfg.KeepBackups)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackbak.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
backups_root: /srv/backups
keep_backups: 3
sources:
  postgres:
    user: admin
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/backups", cfg.BackupsRoot)
	assert.Equal(t, 3, cfg.KeepBackups)
	assert.Equal(t, "admin", cfg.Sources.Postgres.User)
	// Untouched keys keep their defaults.
	assert.Equal(t, "dev-mongodb", cfg.Sources.MongoDB.Container)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackbak.yml")
	require.NoError(t, os.WriteFile(path, []byte("backups_root: /srv/backups\n"), 0644))
	t.Setenv("STACKBAK_BACKUPS_ROOT", "/mnt/external")
	t.Setenv("STACKBAK_VAULT__ADDRESS", "http://vault:8200")
	t.Setenv("STACKBAK_SOURCES__MYSQL__USER", "replica")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/external", cfg.BackupsRoot)
	assert.Equal(t, "http://vault:8200", cfg.Vault.Address)
	assert.Equal(t, "replica", cfg.Sources.MySQL.User)
}

func TestLoadRejectsEmptyBackupsRoot(t *testing.T) {
	t.Setenv("STACKBAK_BACKUPS_ROOT", "")
	_, err := Load("")
	require.Error(t, err)
}
