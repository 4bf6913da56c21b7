package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	stackbak "github.com/stackmeld/stackbak/pkg"
	"github.com/stackmeld/stackbak/pkg/adapters"
	"github.com/stackmeld/stackbak/pkg/catalog"
	"github.com/stackmeld/stackbak/pkg/config"
	"github.com/stackmeld/stackbak/pkg/crypt"
	"github.com/stackmeld/stackbak/pkg/orchestrator"
	"github.com/stackmeld/stackbak/pkg/runlog"
	"github.com/stackmeld/stackbak/pkg/vault"
)

var (
	flagConfig string
	flagQuiet  bool
)

var rootCmd = &cobra.Command{
	Use:           "stackbak",
	Short:         "Backup, verify and restore the dev stack's stateful services",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "stackbak.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress console output")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	return config.Load(flagConfig)
}

// newEnvironment assembles the pieces every command needs. The catalog
// lives next to the backups; a failure to open it degrades to no history
// rather than blocking the run.
func newEnvironment(cfg config.Config, runID string) (*orchestrator.Orchestrator, *catalog.Catalog, error) {
	console := runlog.New(runlog.Options{
		RunID:   runID,
		LogFile: cfg.LogFile,
		Quiet:   flagQuiet,
	})

	configDir, err := crypt.DefaultConfigDir()
	if err != nil {
		return nil, nil, err
	}

	var history *catalog.Catalog
	if err := os.MkdirAll(cfg.BackupsRoot, 0755); err == nil {
		history, err = catalog.Open(filepath.Join(cfg.BackupsRoot, "history.db"))
		if err != nil {
			console.Step("history").Errf("run history disabled: %v", err)
			history = nil
		}
	}

	runner := stackbak.NewExecRunner()
	secrets := vault.New(cfg.Vault.Address, configDir)

	o := orchestrator.New(orchestrator.Options{
		Config:        cfg,
		Adapters:      orchestrator.DefaultAdapters(cfg, runner, secrets),
		ConfigAdapter: newConfigAdapter(cfg),
		GPG:           crypt.NewGPG(runner),
		Console:       console,
		History:       history,
	})
	return o, history, nil
}

func newConfigAdapter(cfg config.Config) stackbak.SourceAdapter {
	return adapters.NewEnvFile(cfg.EnvFile)
}

func passphraseStore() (*crypt.Store, error) {
	dir, err := crypt.DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return crypt.NewStore(dir), nil
}

// confirm asks for an explicit yes before destructive operations.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
