package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	app "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/application/supplierimport"
	domain "github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
	applog "github.com/SupernovaIndustries/supernova-management-software-sub006/server"
)

var (
	importSupplier     string
	importUser         string
	importInvoice      string
	importInvoiceDate  string
	importInvoiceTotal string
	importProject      string
	importMappings     []string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a supplier export into the inventory",
	Long: `Import a supplier order export (CSV or XLSX) into the inventory.

The column mapping is taken from the saved mappings of the supplier or
detected from the header. Use --map to override single columns.

Examples:
  importctl import mouser-order.csv --supplier Mouser
  importctl import order.xlsx --supplier Digikey --invoice INV-42 --invoice-date 2024-03-01
  importctl import order.csv --supplier LCSC --map manufacturer_part_number="Mfr. Part #" --map stock_quantity=Qty`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importSupplier, "supplier", "s", "", "supplier identifier (required)")
	importCmd.Flags().StringVarP(&importUser, "user", "u", "cli", "user recorded on the job")
	importCmd.Flags().StringVar(&importInvoice, "invoice", "", "invoice number")
	importCmd.Flags().StringVar(&importInvoiceDate, "invoice-date", "", "invoice date (YYYY-MM-DD)")
	importCmd.Flags().StringVar(&importInvoiceTotal, "invoice-total", "", "invoice total")
	importCmd.Flags().StringVar(&importProject, "project", "", "project identifier")
	importCmd.Flags().StringArrayVarP(&importMappings, "map", "m", nil, "mapping override field=column")
	_ = importCmd.MarkFlagRequired("supplier")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	override, err := parseMappingFlags(importMappings)
	if err != nil {
		return err
	}
	invoice, err := invoiceFromFlags()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	start := time.Now()
	job, runErr := svc.UseCase.RunImport(ctx, app.SubmitImportRequest{
		UserID:          importUser,
		SupplierID:      importSupplier,
		FileName:        filepath.Base(path),
		File:            f,
		MappingOverride: override,
		Invoice:         invoice,
	})
	if job == nil {
		return fmt.Errorf("import: %w", runErr)
	}

	applog.LogJobFinished(ctx, job.ID, string(job.Status),
		job.Counters.Imported, job.Counters.Updated, job.Counters.Skipped, job.Counters.Failed, time.Since(start))
	printJobResult(cmd.OutOrStdout(), job)
	if runErr != nil {
		return fmt.Errorf("import: %w", runErr)
	}
	return nil
}

// parseMappingFlags разбирает пары field=column
func parseMappingFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		field, column, ok := strings.Cut(pair, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid mapping %q (expected field=column)", pair)
		}
		out[field] = strings.TrimSpace(column)
	}
	return out, nil
}

func invoiceFromFlags() (*domain.InvoiceRef, error) {
	number := strings.TrimSpace(importInvoice)
	if number == "" {
		return nil, nil
	}
	inv := &domain.InvoiceRef{Number: number, ProjectID: strings.TrimSpace(importProject)}
	if importInvoiceDate != "" {
		d, err := time.Parse("2006-01-02", importInvoiceDate)
		if err != nil {
			return nil, fmt.Errorf("invalid --invoice-date %q (expected YYYY-MM-DD)", importInvoiceDate)
		}
		inv.Date = &d
	}
	if importInvoiceTotal != "" {
		total, err := decimal.NewFromString(importInvoiceTotal)
		if err != nil {
			return nil, fmt.Errorf("invalid --invoice-total %q", importInvoiceTotal)
		}
		inv.Total = &total
	}
	return inv, nil
}

// printJobResult печатает итог задачи и отклоненные строки
func printJobResult(w io.Writer, job *domain.ImportJob) {
	fmt.Fprintf(w, "Job: %s\n", job.ID)
	fmt.Fprintf(w, "  Kind: %s\n", job.Kind)
	fmt.Fprintf(w, "  Status: %s\n", job.Status)
	if job.StartedAt != nil && job.FinishedAt != nil {
		fmt.Fprintf(w, "  Duration: %s\n", job.FinishedAt.Sub(*job.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "  Imported: %d\n", job.Counters.Imported)
	fmt.Fprintf(w, "  Updated: %d\n", job.Counters.Updated)
	fmt.Fprintf(w, "  Skipped: %d\n", job.Counters.Skipped)
	fmt.Fprintf(w, "  Failed: %d\n", job.Counters.Failed)
	if job.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", job.Error)
	}

	var rejected []domain.RowDetail
	for _, d := range job.Details {
		if d.Reason != "" && (d.Outcome == app.RowSkipped || d.Outcome == app.RowError) {
			rejected = append(rejected, d)
		}
	}
	if len(rejected) > 0 {
		fmt.Fprintf(w, "\nRejected rows (%d):\n", len(rejected))
		for _, d := range rejected {
			fmt.Fprintf(w, "  - row %d: %s (%s)\n", d.RowNumber, d.Outcome, d.Reason)
		}
	}
}
