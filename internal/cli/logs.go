package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <job-id>",
	Short: "Show the log of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		rec, err := svc.UseCase.GetProgress(ctx, args[0])
		if err != nil {
			return fmt.Errorf("read progress: %w", err)
		}
		if rec != nil {
			fmt.Fprintf(out, "Status: %s (%d/%d, %.0f%%)\n", rec.Status, rec.Current, rec.Total, rec.Percentage)
		}

		entries, err := svc.UseCase.GetLogs(ctx, args[0])
		if err != nil {
			return fmt.Errorf("read logs: %w", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No log entries")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Local().Format(time.TimeOnly), e.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)
}
