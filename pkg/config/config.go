// Package config loads tool configuration with koanf: built-in defaults,
// then an optional YAML file, then STACKBAK_ environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds everything the backup, restore and verify paths need.
type Config struct {
	// BackupsRoot is the directory that holds one subdirectory per backup.
	BackupsRoot string `koanf:"backups_root"`

	// ComposeDir is the directory containing the stack's docker-compose.yml;
	// dump and restore tools run through `docker compose exec` from here.
	ComposeDir string `koanf:"compose_dir"`

	// EnvFile is the stack configuration file captured as the config entry.
	EnvFile string `koanf:"env_file"`

	// LogFile, when set, receives the rotated run log.
	LogFile string `koanf:"log_file"`

	// MinFreeBytes refuses a backup run when the backups root's filesystem
	// has less free space than this.
	MinFreeBytes uint64 `koanf:"min_free_bytes"`

	// KeepBackups is the count-based retention used by prune.
	KeepBackups int `koanf:"keep_backups"`

	Vault   VaultConfig   `koanf:"vault"`
	Sources SourcesConfig `koanf:"sources"`
}

type VaultConfig struct {
	Address string `koanf:"address"`
}

type SourcesConfig struct {
	Postgres PostgresConfig `koanf:"postgres"`
	MySQL    MySQLConfig    `koanf:"mysql"`
	MongoDB  MongoConfig    `koanf:"mongodb"`
	Forgejo  ForgejoConfig  `koanf:"forgejo"`
}

type PostgresConfig struct {
	Service string `koanf:"service"`
	User    string `koanf:"user"`
}

type MySQLConfig struct {
	Container string `koanf:"container"`
	User      string `koanf:"user"`
}

type MongoConfig struct {
	Container string `koanf:"container"`
	User      string `koanf:"user"`
	AuthDB    string `koanf:"auth_db"`
}

type ForgejoConfig struct {
	Service string `koanf:"service"`
	DataDir string `koanf:"data_dir"`

	// ReposMirror is an optional host path holding the bare repositories;
	// when set, per-repo HEAD refs are recorded in the manifest.
	ReposMirror string `koanf:"repos_mirror"`
}

// Defaults mirror the stack layout the tool grew up with.
func Defaults() Config {
	return Config{
		BackupsRoot:  "backups",
		ComposeDir:   ".",
		EnvFile:      ".env",
		MinFreeBytes: 512 * 1024 * 1024,
		KeepBackups:  10,
		Vault: VaultConfig{
			Address: "http://localhost:8200",
		},
		Sources: SourcesConfig{
			Postgres: PostgresConfig{Service: "postgres", User: "devuser"},
			MySQL:    MySQLConfig{Container: "dev-mysql", User: "devuser"},
			MongoDB:  MongoConfig{Container: "dev-mongodb", User: "devuser", AuthDB: "admin"},
			Forgejo:  ForgejoConfig{Service: "forgejo", DataDir: "/data"},
		},
	}
}

const envPrefix = "STACKBAK_"

// Load builds the effective configuration. path may be empty or point at
// a YAML file; a missing file at the default location is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// Double underscore nests: STACKBAK_SOURCES__MYSQL__USER=x sets
	// sources.mysql.user, while single underscores stay part of the key
	// (STACKBAK_BACKUPS_ROOT sets backups_root).
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.BackupsRoot == "" {
		return Config{}, fmt.Errorf("backups_root must not be empty")
	}
	return cfg, nil
}
