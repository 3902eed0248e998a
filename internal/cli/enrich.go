package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	applog "github.com/SupernovaIndustries/supernova-management-software-sub006/server"
)

var (
	enrichCategory   int64
	enrichComponents []int64
	enrichLimit      int
	enrichUser       string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill missing technical attributes from datasheets",
	Long: `Enrich components that lack package, mounting type, tolerance or voltage
rating. Attributes are extracted from descriptions and, when scraping is
enabled, from the datasheet page of the component.

Examples:
  importctl enrich
  importctl enrich --category 3 --limit 50
  importctl enrich --component 12 --component 15`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().Int64Var(&enrichCategory, "category", 0, "only components of this category")
	enrichCmd.Flags().Int64SliceVar(&enrichComponents, "component", nil, "only these component ids")
	enrichCmd.Flags().IntVarP(&enrichLimit, "limit", "n", 0, "maximum number of components (0 = no limit)")
	enrichCmd.Flags().StringVarP(&enrichUser, "user", "u", "cli", "user recorded on the job")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	if enrichLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	filter := domain.EnrichmentFilter{ComponentIDs: enrichComponents, Limit: enrichLimit}
	if enrichCategory > 0 {
		category := enrichCategory
		filter.CategoryID = &category
	}

	ctx := cmd.Context()
	start := time.Now()
	job, runErr := svc.UseCase.RunEnrichment(ctx, enrichUser, filter)
	if job == nil {
		return fmt.Errorf("enrich: %w", runErr)
	}

	applog.LogJobFinished(ctx, job.ID, string(job.Status),
		job.Counters.Imported, job.Counters.Updated, job.Counters.Skipped, job.Counters.Failed, time.Since(start))
	printJobResult(cmd.OutOrStdout(), job)
	if runErr != nil {
		return fmt.Errorf("enrich: %w", runErr)
	}
	return nil
}
