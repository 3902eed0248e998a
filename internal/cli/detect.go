package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/importer"
)

var detectSupplier string

var detectCmd = &cobra.Command{
	Use:   "detect-mapping <file>",
	Short: "Detect and save the column mapping of a supplier export",
	Long: `Read the header of a sample export, match its columns to the canonical
component fields and save the mapping for the supplier.

Fails when a required field (manufacturer part number, quantity) has no column.

Examples:
  importctl detect-mapping sample.csv --supplier Mouser`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVarP(&detectSupplier, "supplier", "s", "", "supplier identifier (required)")
	_ = detectCmd.MarkFlagRequired("supplier")

	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	mapping, err := svc.UseCase.DetectMapping(cmd.Context(), detectSupplier, filepath.Base(args[0]), f)
	if err != nil {
		return fmt.Errorf("detect mapping: %w", err)
	}

	printMapping(cmd, mapping)
	return nil
}

func printMapping(cmd *cobra.Command, mapping *importer.Mapping) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Supplier: %s (%s)\n", mapping.SupplierID, mapping.Source)

	fields := mapping.Fields()
	sort.Strings(fields)

	fmt.Fprintf(out, "%-20s %-6s %-10s %s\n", "FIELD", "INDEX", "TYPE", "COLUMN")
	fmt.Fprintln(out, "------------------------------------------------------------")
	for _, field := range fields {
		ref := mapping.Columns[field]
		fmt.Fprintf(out, "%-20s %-6d %-10s %s\n", field, ref.Index, ref.DataType, ref.Name)
	}
}
