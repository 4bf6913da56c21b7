package orchestrator

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/disk"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/utils"
)

// checkFreeSpace refuses to start a backup when the filesystem holding
// the backups root is below the configured floor. A filesystem we cannot
// measure does not block the run; the dump itself will surface real
// write failures.
func (o *Orchestrator) checkFreeSpace() error {
	if err := os.MkdirAll(o.cfg.BackupsRoot, 0755); err != nil {
		return fmt.Errorf("%w: creating backups root: %v", stackbak.ErrFilesystem, err)
	}
	if o.cfg.MinFreeBytes == 0 {
		return nil
	}

	usage, err := disk.Usage(o.cfg.BackupsRoot)
	if err != nil {
		return nil
	}
	if usage.Free < o.cfg.MinFreeBytes {
		return fmt.Errorf("%w: %s free on %s, need at least %s",
			stackbak.ErrFilesystem,
			utils.PrettyPrintDiskSize(int64(usage.Free)),
			o.cfg.BackupsRoot,
			utils.PrettyPrintDiskSize(int64(o.cfg.MinFreeBytes)))
	}
	return nil
}
