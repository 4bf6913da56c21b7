package adapters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/config"
)

const forgejoArtifact = "forgejo_data.tar.gz"

// Forgejo captures the git host's whole data directory as a tarball
// streamed out of the container. When a host-side repositories mirror is
// configured it also records each repository's HEAD hash, so a restored
// backup can be checked against what the repositories looked like at
// dump time.
type Forgejo struct {
	runner     stackbak.CommandRunner
	cfg        config.ForgejoConfig
	composeDir string
}

func NewForgejo(runner stackbak.CommandRunner, cfg config.ForgejoConfig, composeDir string) *Forgejo {
	return &Forgejo{runner: runner, cfg: cfg, composeDir: composeDir}
}

func (f *Forgejo) Name() string         { return "forgejo" }
func (f *Forgejo) ArtifactName() string { return forgejoArtifact }

func (f *Forgejo) Dump(ctx context.Context, destDir string) error {
	cmd := composeExec(f.composeDir, f.cfg.Service, nil,
		"tar", "czf", "-", f.cfg.DataDir)

	stdout, stderr, err := f.runner.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%w: forgejo tar: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return writeArtifact(filepath.Join(destDir, forgejoArtifact), stdout)
}

func (f *Forgejo) Restore(ctx context.Context, artifactPath string) error {
	file, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(artifactPath), err)
	}
	defer file.Close()

	// The data directory is replaced wholesale before unpacking so files
	// deleted since the backup do not survive the restore.
	script := fmt.Sprintf("rm -rf %s/* && tar xzf - -C /", f.cfg.DataDir)
	cmd := composeExec(f.composeDir, f.cfg.Service, nil, "sh", "-c", script)
	cmd.Stdin = file

	if _, stderr, err := f.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: forgejo untar: %v: %s", stackbak.ErrSourceUnavailable, err, firstLine(stderr))
	}
	return nil
}

// HeadRefs walks the repositories mirror (laid out as <owner>/<repo>.git)
// and returns HEAD hashes keyed by "owner/repo.git". Repositories without
// a resolvable HEAD, such as freshly created empty ones, are skipped.
// Returns nil when no mirror is configured.
func (f *Forgejo) HeadRefs() (map[string]string, error) {
	if f.cfg.ReposMirror == "" {
		return nil, nil
	}

	owners, err := os.ReadDir(f.cfg.ReposMirror)
	if err != nil {
		return nil, fmt.Errorf("reading repos mirror: %w", err)
	}

	refs := make(map[string]string)
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		repos, err := os.ReadDir(filepath.Join(f.cfg.ReposMirror, owner.Name()))
		if err != nil {
			continue
		}
		for _, entry := range repos {
			if !entry.IsDir() || !strings.HasSuffix(entry.Name(), ".git") {
				continue
			}
			repoPath := filepath.Join(f.cfg.ReposMirror, owner.Name(), entry.Name())
			repo, err := git.PlainOpen(repoPath)
			if err != nil {
				continue
			}
			head, err := repo.Head()
			if err != nil {
				continue
			}
			refs[owner.Name()+"/"+entry.Name()] = head.Hash().String()
		}
	}
	return refs, nil
}
