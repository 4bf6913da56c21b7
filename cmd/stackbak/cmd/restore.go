package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/crypt"
	"github.com/stackmeld/stackbak/pkg/manifest"
)

var flagYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore [backup_id]",
	Short: "Restore a backup into the running stack",
	Long: `Replay every artifact of one backup back into its service. This
overwrites the current data of every restored service. Without a
backup_id the available backups are listed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			units, err := manifest.ListUnits(cfg.BackupsRoot)
			if err != nil {
				return err
			}
			if len(units) == 0 {
				fmt.Println("No backups found.")
				return nil
			}
			fmt.Println("Available backups:")
			for _, id := range units {
				fmt.Printf("  %s\n", id)
			}
			fmt.Println("\nRun `stackbak restore <backup_id>` to restore one.")
			return nil
		}
		backupID := args[0]

		m, err := manifest.Load(filepath.Join(cfg.BackupsRoot, backupID))
		if err != nil {
			return err
		}

		if m.BackupType == stackbak.BackupTypeIncremental {
			chain, err := manifest.ChainFor(cfg.BackupsRoot, backupID)
			if err != nil {
				return err
			}
			fmt.Printf("Backup %s is incremental; its chain is: %v\n", backupID, chain)
		}

		if !flagYes && !confirm(fmt.Sprintf("Restore %s? This overwrites current service data", backupID)) {
			fmt.Println("Aborted.")
			return nil
		}

		var passphrase *crypt.Passphrase
		if m.Encrypted {
			store, err := passphraseStore()
			if err != nil {
				return err
			}
			if !store.Exists() {
				return fmt.Errorf("%w: backup %s is encrypted and no passphrase is configured", stackbak.ErrDecryptionFailed, backupID)
			}
			passphrase, err = store.Load()
			if err != nil {
				return err
			}
		}

		o, history, err := newEnvironment(cfg, time.Now().Format(stackbak.BackupIDLayout))
		if err != nil {
			return err
		}
		if history != nil {
			defer history.Close()
		}

		results, err := o.RunRestore(cmd.Context(), backupID, passphrase)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if r.Status != stackbak.SourceOK {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("restore of %s completed with %d of %d sources failed", backupID, failed, len(results))
		}
		fmt.Printf("Restore of %s complete.\n", backupID)
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(restoreCmd)
}
