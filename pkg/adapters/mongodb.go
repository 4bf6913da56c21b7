package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/config"
)

const mongoArtifact = "mongodb_dump.archive"

// MongoDB dumps and restores via mongodump / mongorestore in archive
// mode. The mongo tools take the password only as a flag, so the command
// is wrapped in a container-side shell that expands it from MONGO_PWD.
// The password never appears on the host command line.
type MongoDB struct {
	runner  stackbak.CommandRunner
	secrets stackbak.SecretProvider
	cfg     config.MongoConfig
}

func NewMongoDB(runner stackbak.CommandRunner, secrets stackbak.SecretProvider, cfg config.MongoConfig) *MongoDB {
	return &MongoDB{runner: runner, secrets: secrets, cfg: cfg}
}

func (m *MongoDB) Name() string         { return "mongodb" }
func (m *MongoDB) ArtifactName() string { return mongoArtifact }

func (m *MongoDB) Dump(ctx context.Context, destDir string) error {
	password, err := m.secrets.GetSecret("mongodb", "password")
	if err != nil {
		return err
	}

	script := fmt.Sprintf(
		`mongodump --username %s --password "$MONGO_PWD" --authenticationDatabase %s --archive --quiet`,
		m.cfg.User, m.cfg.AuthDB)
	cmd := dockerExec(m.cfg.Container, []string{"MONGO_PWD"}, "sh", "-c", script)
	cmd.Env = []string{"MONGO_PWD=" + password}

	stdout, stderr, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: mongodump: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return writeArtifact(filepath.Join(destDir, mongoArtifact), stdout)
}

func (m *MongoDB) Restore(ctx context.Context, artifactPath string) error {
	password, err := m.secrets.GetSecret("mongodb", "password")
	if err != nil {
		return err
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(artifactPath), err)
	}
	defer f.Close()

	script := fmt.Sprintf(
		`mongorestore --username %s --password "$MONGO_PWD" --authenticationDatabase %s --archive --drop --quiet`,
		m.cfg.User, m.cfg.AuthDB)
	cmd := dockerExec(m.cfg.Container, []string{"MONGO_PWD"}, "sh", "-c", script)
	cmd.Env = []string{"MONGO_PWD=" + password}
	cmd.Stdin = f

	if _, stderr, err := m.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: mongorestore: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return nil
}
