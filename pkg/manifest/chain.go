package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

// ListUnits returns the backup directory names under root in ascending
// timestamp order. Directory names are sortable timestamps, so the
// lexicographic sort is the chronological one. Non-backup entries such
// as dotfiles or stray files are ignored.
func ListUnits(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backups root: %w", err)
	}

	var units []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) == 0 || name[0] < '0' || name[0] > '9' {
			continue
		}
		units = append(units, name)
	}
	sort.Strings(units)
	return units, nil
}

// FindLatestFull scans units newest-first and returns the ID of the
// first whose manifest says full. Units with unreadable manifests are
// skipped. If no unit has a readable manifest at all, the newest unit
// is treated as full; that keeps restores possible after a run whose
// manifest generation failed, at the cost of weaker lineage guarantees.
// Returns "" when root holds no units.
func FindLatestFull(root string) (string, error) {
	units, err := ListUnits(root)
	if err != nil {
		return "", err
	}
	if len(units) == 0 {
		return "", nil
	}

	anyManifest := false
	for i := len(units) - 1; i >= 0; i-- {
		m, err := Load(unitDir(root, units[i]))
		if err != nil {
			continue
		}
		anyManifest = true
		if m.BackupType == stackbak.BackupTypeFull {
			return units[i], nil
		}
	}

	if !anyManifest {
		return units[len(units)-1], nil
	}
	return "", nil
}

// LatestUnit returns the newest unit ID, or "" when none exist. Used to
// record previous_backup_id links.
func LatestUnit(root string) (string, error) {
	units, err := ListUnits(root)
	if err != nil || len(units) == 0 {
		return "", err
	}
	return units[len(units)-1], nil
}

// ChainFor resolves the restore prerequisites of a unit: the base full
// backup followed by every incremental that leads to it, target
// included, in restore order. A full unit's chain is itself.
func ChainFor(root string, backupID string) ([]string, error) {
	m, err := Load(unitDir(root, backupID))
	if err != nil {
		return nil, err
	}
	if m.BackupType == stackbak.BackupTypeFull {
		return []string{backupID}, nil
	}

	units, err := ListUnits(root)
	if err != nil {
		return nil, err
	}

	var chain []string
	for _, unit := range units {
		if unit < m.BaseBackupID || unit > backupID {
			continue
		}
		um, err := Load(unitDir(root, unit))
		if err != nil {
			continue
		}
		switch {
		case unit == m.BaseBackupID, unit == backupID:
			chain = append(chain, unit)
		case um.BackupType == stackbak.BackupTypeIncremental && um.BaseBackupID == m.BaseBackupID:
			chain = append(chain, unit)
		}
	}

	if len(chain) == 0 || chain[0] != m.BaseBackupID {
		return nil, fmt.Errorf("%w: base backup %s not found for %s", stackbak.ErrManifestCorrupt, m.BaseBackupID, backupID)
	}
	return chain, nil
}

func unitDir(root string, id string) string {
	return filepath.Join(root, id)
}
