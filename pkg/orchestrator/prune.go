package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/manifest"
)

// Prune removes the oldest backup directories beyond keep. A full backup
// that a kept incremental depends on is kept too, even when it falls
// outside the count, so pruning can never orphan a chain. Returns the
// removed IDs, oldest first.
func (o *Orchestrator) Prune(keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("keep must be at least 1")
	}

	units, err := manifest.ListUnits(o.cfg.BackupsRoot)
	if err != nil {
		return nil, err
	}
	if len(units) <= keep {
		return nil, nil
	}

	kept := units[len(units)-keep:]
	keepSet := make(map[string]bool)
	for _, id := range kept {
		keepSet[id] = true
	}
	// Pull chain prerequisites into the keep set. Units whose chains
	// cannot be resolved are left alone rather than guessed about.
	for _, id := range kept {
		chain, err := manifest.ChainFor(o.cfg.BackupsRoot, id)
		if err != nil {
			continue
		}
		for _, dep := range chain {
			keepSet[dep] = true
		}
	}

	step := o.console.Step("prune")
	var removed []string
	for _, id := range units {
		if keepSet[id] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(o.cfg.BackupsRoot, id)); err != nil {
			return removed, fmt.Errorf("%w: removing %s: %v", stackbak.ErrFilesystem, id, err)
		}
		if o.history != nil {
			if err := o.history.Forget(id); err != nil {
				step.Errf("%v", err)
			}
		}
		step.Logf("removed %s", id)
		removed = append(removed, id)
	}
	return removed, nil
}
