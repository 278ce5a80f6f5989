package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	importStatusPath string
	importSheetPath  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the legacy status file and quest spreadsheet",
	Long: `Import reads the legacy status file and the quest spreadsheet (.xlsx or .csv)
and upserts every well-formed row. Notes and tags already stored are kept.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importStatusPath, "status", "", "status file (default from config)")
	importCmd.Flags().StringVar(&importSheetPath, "sheet", "", "spreadsheet (default from config)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := a.Config().Import
	if importStatusPath == "" {
		importStatusPath = cfg.StatusFile
	}
	if importSheetPath == "" {
		importSheetPath = cfg.Spreadsheet
	}

	report, err := a.Service().Import(cmd.Context(), importStatusPath, importSheetPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d quests, skipped %d rows, %d locations\n",
		report.Imported, len(report.Skipped), len(report.Locations))
	for _, s := range report.Skipped {
		fmt.Fprintf(out, "  %s\n", s.Error())
	}
	return nil
}
