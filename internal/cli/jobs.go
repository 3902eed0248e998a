package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect import jobs",
	Long: `List recent import and enrichment jobs or inspect a specific job by ID.

Examples:
  importctl jobs            # List recent jobs
  importctl jobs 6f1c...    # Show details for a job`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "number of jobs to list")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showJob(cmd, args[0])
	}
	return listJobs(cmd)
}

func listJobs(cmd *cobra.Command) error {
	jobs, err := svc.UseCase.ListJobs(cmd.Context(), jobsLimit)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "%-36s %-20s %-10s %-16s %s\n", "ID", "KIND", "STATUS", "I/U/S/F", "CREATED")
	fmt.Fprintln(out, "--------------------------------------------------------------------------------------------------------")
	for _, job := range jobs {
		counters := fmt.Sprintf("%d/%d/%d/%d",
			job.Counters.Imported, job.Counters.Updated, job.Counters.Skipped, job.Counters.Failed)
		fmt.Fprintf(out, "%-36s %-20s %-10s %-16s %s\n",
			job.ID, job.Kind, job.Status, counters, job.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func showJob(cmd *cobra.Command, id string) error {
	job, err := svc.UseCase.GetJob(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	out := cmd.OutOrStdout()
	printJobResult(out, job)
	if job.SupplierID != "" {
		fmt.Fprintf(out, "  Supplier: %s\n", job.SupplierID)
	}
	if job.Source.Name != "" {
		fmt.Fprintf(out, "  File: %s\n", job.Source.Name)
	}
	if job.Invoice != nil {
		fmt.Fprintf(out, "  Invoice: %s\n", job.Invoice.Number)
	}
	return nil
}
