package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every quest as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Load a JSON export back into the store",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd, restoreCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err := a.Service().Export(cmd.Context(), cmd.OutOrStdout())
		return err
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return err
	}
	n, err := a.Service().Export(cmd.Context(), f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d quests to %s\n", n, exportOutput)
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	n, err := a.Service().Restore(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored %d quests\n", n)
	return nil
}
