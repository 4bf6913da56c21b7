package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stackmeld/stackbak/pkg/manifest"
	"github.com/stackmeld/stackbak/pkg/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		units, err := manifest.ListUnits(cfg.BackupsRoot)
		if err != nil {
			return err
		}
		if len(units) == 0 {
			fmt.Println("No backups found.")
			return nil
		}

		// Newest first.
		for i := len(units) - 1; i >= 0; i-- {
			id := units[i]
			m, err := manifest.Load(filepath.Join(cfg.BackupsRoot, id))
			if err != nil {
				fmt.Printf("%s  (no readable manifest)\n", id)
				continue
			}
			encrypted := ""
			if m.Encrypted {
				encrypted = "  encrypted"
			}
			lineage := ""
			if m.BackupType == "incremental" {
				lineage = fmt.Sprintf("  base=%s", m.BaseBackupID)
			}
			fmt.Printf("%s  %-11s %2d files  %9s%s%s\n",
				id, m.BackupType, len(m.AllEntries()),
				utils.PrettyPrintDiskSize(m.TotalSizeBytes), encrypted, lineage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
