package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackmeld/stackbak/pkg/crypt"
)

var passphraseCmd = &cobra.Command{
	Use:   "passphrase",
	Short: "Set up the backup encryption passphrase",
	Long: `Interactively create the passphrase used by encrypted backups. The
passphrase is stored owner-only under your config directory and is
never written into manifests or logs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := passphraseStore()
		if err != nil {
			return err
		}
		if store.Exists() {
			fmt.Printf("A passphrase already exists at %s.\n", store.Path())
			if !confirm("Replace it? Existing encrypted backups will need the old one") {
				fmt.Println("Aborted.")
				return nil
			}
		}

		raw, err := crypt.PromptPassphrase()
		if err != nil {
			return err
		}
		if err := store.Save(raw); err != nil {
			return err
		}
		fmt.Printf("Passphrase saved to %s.\n", store.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passphraseCmd)
}
