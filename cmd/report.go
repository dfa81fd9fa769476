package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jsphweid/fretcoach/file"
	"github.com/jsphweid/fretcoach/model"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [session-id...]",
	Short: "Shows saved practice reports",
	Long: `Without arguments, lists the reports in the report dir. With session ids,
prints those reports, looking in the DynamoDB archive for any not on disk
when a table is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return listReports()
		}

		var missing []string
		for _, id := range args {
			r, err := file.ReadReport(filepath.Join(cfg.ReportDir, id+".json"))
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, id)
				continue
			}
			if err != nil {
				return err
			}
			printReport(r)
		}
		if len(missing) == 0 {
			return nil
		}

		archive, err := openArchive()
		if err != nil {
			return err
		}
		if archive == nil {
			return fmt.Errorf("no report for %v", missing)
		}
		found, err := archive.GetReports(cmd.Context(), missing)
		if err != nil {
			return err
		}
		for _, id := range missing {
			r, ok := found[id]
			if !ok {
				return fmt.Errorf("no report for %s", id)
			}
			printReport(r)
		}
		return nil
	},
}

func listReports() error {
	paths, err := file.ListReports(cfg.ReportDir)
	if err != nil {
		return err
	}
	var reports []model.ScoreReport
	for _, p := range paths {
		r, err := file.ReadReport(p)
		if err != nil {
			logger.Warn("report: unreadable", "path", p, "err", err)
			continue
		}
		reports = append(reports, r)
	}
	if len(reports) == 0 {
		fmt.Printf("no reports in %s\n", cfg.ReportDir)
		return nil
	}
	for _, r := range reports {
		fmt.Printf("%s  %-20s  %-2s  %5.1f  %s\n",
			r.SessionID, r.Title, r.Grade, r.FinalScore, r.StartedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
