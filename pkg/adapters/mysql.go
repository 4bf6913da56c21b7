package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/config"
)

const mysqlArtifact = "mysql_all.sql"

// MySQL dumps all databases with mysqldump and replays them with the
// mysql client. The container is addressed by name because the stack
// runs MySQL outside the compose service graph.
type MySQL struct {
	runner  stackbak.CommandRunner
	secrets stackbak.SecretProvider
	cfg     config.MySQLConfig
}

func NewMySQL(runner stackbak.CommandRunner, secrets stackbak.SecretProvider, cfg config.MySQLConfig) *MySQL {
	return &MySQL{runner: runner, secrets: secrets, cfg: cfg}
}

func (m *MySQL) Name() string         { return "mysql" }
func (m *MySQL) ArtifactName() string { return mysqlArtifact }

func (m *MySQL) Dump(ctx context.Context, destDir string) error {
	password, err := m.secrets.GetSecret("mysql", "password")
	if err != nil {
		return err
	}

	cmd := dockerExec(m.cfg.Container, []string{"MYSQL_PWD"},
		"mysqldump", "-u", m.cfg.User, "--all-databases", "--no-tablespaces")
	cmd.Env = []string{"MYSQL_PWD=" + password}

	stdout, stderr, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: mysqldump: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return writeArtifact(filepath.Join(destDir, mysqlArtifact), stdout)
}

func (m *MySQL) Restore(ctx context.Context, artifactPath string) error {
	password, err := m.secrets.GetSecret("mysql", "password")
	if err != nil {
		return err
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(artifactPath), err)
	}
	defer f.Close()

	cmd := dockerExec(m.cfg.Container, []string{"MYSQL_PWD"},
		"mysql", "-u", m.cfg.User)
	cmd.Env = []string{"MYSQL_PWD=" + password}
	cmd.Stdin = f

	if _, stderr, err := m.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: mysql restore: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return nil
}
