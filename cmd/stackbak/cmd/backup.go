package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/crypt"
)

var (
	flagIncremental bool
	flagFull        bool
	flagEncrypt     bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a new backup of all stack services",
	Long: `Dump every stateful service (PostgreSQL, MySQL, MongoDB, Forgejo data,
stack config) into a new timestamped backup directory and write its
manifest. Individual sources that cannot be reached are skipped and
reported; the run itself continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagIncremental && flagFull {
			return fmt.Errorf("--incremental and --full are mutually exclusive")
		}
		backupType := stackbak.BackupTypeFull
		if flagIncremental {
			backupType = stackbak.BackupTypeIncremental
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var passphrase *crypt.Passphrase
		if flagEncrypt {
			store, err := passphraseStore()
			if err != nil {
				return err
			}
			passphrase, err = store.GetOrCreate(crypt.PromptPassphrase)
			if err != nil {
				return fmt.Errorf("setting up passphrase: %w", err)
			}
		}

		// One clock read: the run log tag and the backup directory share it.
		start := time.Now()
		o, history, err := newEnvironment(cfg, start.Format(stackbak.BackupIDLayout))
		if err != nil {
			return err
		}
		if history != nil {
			defer history.Close()
		}

		m, results, err := o.RunBackup(cmd.Context(), start, backupType, flagEncrypt, passphrase)
		if err != nil {
			return err
		}

		notOK := 0
		for _, r := range results {
			if r.Status != stackbak.SourceOK {
				notOK++
			}
		}
		if notOK > 0 {
			return fmt.Errorf("backup %s completed with %d of %d sources not captured", m.BackupID, notOK, len(results))
		}
		return nil
	},
}

func init() {
	backupCmd.Flags().BoolVar(&flagIncremental, "incremental", false, "create an incremental backup against the latest full backup")
	backupCmd.Flags().BoolVar(&flagFull, "full", false, "create a full backup (the default)")
	backupCmd.Flags().BoolVar(&flagEncrypt, "encrypt", false, "encrypt artifacts with the backup passphrase")
	rootCmd.AddCommand(backupCmd)
}
