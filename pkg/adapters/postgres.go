package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/config"
)

const postgresArtifact = "postgres_all.sql"

// Postgres dumps and restores every database in the cluster with
// pg_dumpall / psql, run inside the compose service.
type Postgres struct {
	runner     stackbak.CommandRunner
	secrets    stackbak.SecretProvider
	cfg        config.PostgresConfig
	composeDir string
}

func NewPostgres(runner stackbak.CommandRunner, secrets stackbak.SecretProvider, cfg config.PostgresConfig, composeDir string) *Postgres {
	return &Postgres{runner: runner, secrets: secrets, cfg: cfg, composeDir: composeDir}
}

func (p *Postgres) Name() string         { return "postgres" }
func (p *Postgres) ArtifactName() string { return postgresArtifact }

func (p *Postgres) Dump(ctx context.Context, destDir string) error {
	password, err := p.secrets.GetSecret("postgres", "password")
	if err != nil {
		return err
	}

	cmd := composeExec(p.composeDir, p.cfg.Service, []string{"PGPASSWORD"},
		"pg_dumpall", "-U", p.cfg.User)
	cmd.Env = []string{"PGPASSWORD=" + password}

	stdout, stderr, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: pg_dumpall: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return writeArtifact(filepath.Join(destDir, postgresArtifact), stdout)
}

func (p *Postgres) Restore(ctx context.Context, artifactPath string) error {
	password, err := p.secrets.GetSecret("postgres", "password")
	if err != nil {
		return err
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(artifactPath), err)
	}
	defer f.Close()

	cmd := composeExec(p.composeDir, p.cfg.Service, []string{"PGPASSWORD"},
		"psql", "-U", p.cfg.User, "-d", "postgres")
	cmd.Env = []string{"PGPASSWORD=" + password}
	cmd.Stdin = f

	if _, stderr, err := p.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: psql restore: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return nil
}
