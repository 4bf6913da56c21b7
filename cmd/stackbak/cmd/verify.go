package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackmeld/stackbak/pkg/catalog"
	"github.com/stackmeld/stackbak/pkg/manifest"
	"github.com/stackmeld/stackbak/pkg/verify"
)

var flagVerifyAll bool

var verifyCmd = &cobra.Command{
	Use:   "verify [backup_id]",
	Short: "Check a backup's files against its manifest checksums",
	Long: `Re-hash every stored file of a backup and compare against the manifest.
Works on encrypted backups without the passphrase. Without a backup_id
the most recent backup is verified; --all verifies every backup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		var targets []string
		switch {
		case flagVerifyAll:
			if len(args) > 0 {
				return fmt.Errorf("--all takes no backup_id")
			}
			targets, err = manifest.ListUnits(cfg.BackupsRoot)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Println("No backups found.")
				return nil
			}
		case len(args) == 1:
			targets = []string{args[0]}
		default:
			latest, err := manifest.LatestUnit(cfg.BackupsRoot)
			if err != nil {
				return err
			}
			if latest == "" {
				fmt.Println("No backups found.")
				return nil
			}
			targets = []string{latest}
		}

		var history *catalog.Catalog
		if h, err := catalog.Open(filepath.Join(cfg.BackupsRoot, "history.db")); err == nil {
			history = h
			defer history.Close()
		}

		failed := 0
		for _, id := range targets {
			start := time.Now()
			report, err := verify.Unit(filepath.Join(cfg.BackupsRoot, id))
			if err != nil {
				fmt.Printf("%s: %v\n", id, err)
				failed++
				recordVerify(history, id, start, false, err.Error())
				continue
			}
			printReport(id, report)
			if !report.Success() {
				failed++
			}
			detail := ""
			if len(report.Errors) > 0 {
				detail = report.Errors[0]
			}
			recordVerify(history, id, start, report.Success(), detail)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d backups failed verification", failed, len(targets))
		}
		return nil
	},
}

func printReport(id string, report *verify.Report) {
	status := "OK"
	if !report.Success() {
		status = "FAILED"
	}
	fmt.Printf("%s: %s (%d/%d files verified)\n", id, status, report.FilesVerified, report.FilesTotal)
	for _, f := range report.Files {
		if f.State == verify.StateOK {
			continue
		}
		fmt.Printf("  %s: %s (%s)\n", f.Filename, f.State, f.Detail)
	}
}

func recordVerify(history *catalog.Catalog, id string, start time.Time, success bool, detail string) {
	if history == nil {
		return
	}
	_ = history.Add(catalog.Record{
		BackupID:  id,
		Kind:      catalog.RunVerify,
		Success:   success,
		Duration:  time.Since(start),
		Detail:    detail,
		StartedAt: start,
	})
}

func init() {
	verifyCmd.Flags().BoolVar(&flagVerifyAll, "all", false, "verify every backup on disk")
	rootCmd.AddCommand(verifyCmd)
}
