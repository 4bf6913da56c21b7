package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	stackbak "github.com/stackmeld/stackbak/pkg"
)

var flagKeep int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old backups beyond the retention count",
	Long: `Delete the oldest backup directories, keeping the newest N plus any
full backup a kept incremental depends on.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		keep := cfg.KeepBackups
		if cmd.Flags().Changed("keep") {
			keep = flagKeep
		}

		if !flagYes && !confirm(fmt.Sprintf("Prune backups down to the newest %d?", keep)) {
			fmt.Println("Aborted.")
			return nil
		}

		o, history, err := newEnvironment(cfg, time.Now().Format(stackbak.BackupIDLayout))
		if err != nil {
			return err
		}
		if history != nil {
			defer history.Close()
		}

		removed, err := o.Prune(keep)
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			fmt.Println("Nothing to prune.")
			return nil
		}
		fmt.Printf("Removed %d backups.\n", len(removed))
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&flagKeep, "keep", 10, "number of backups to keep")
	pruneCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(pruneCmd)
}
