package main

import (
	"fmt"
	"strconv"

	"questTracker/internal/models/quest"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress [life]",
	Short: "Show completion per life, or per rank for one life",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProgress,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show overall quest statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "Show quest counts per location",
	Args:  cobra.NoArgs,
	RunE:  runLocations,
}

func init() {
	rootCmd.AddCommand(progressCmd, statsCmd, locationsCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		p, err := a.Service().LifeProgress(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, titleStyle.Render(p.Life))
		fmt.Fprintln(out, progressLine("Total", p.Completed, p.Total, p.Percentage))
		for _, r := range p.Ranks {
			fmt.Fprintln(out, progressLine(r.Rank, r.Completed, r.Total, quest.Percent(r.Completed, r.Total)))
		}
		return nil
	}

	all, err := a.Service().AllProgress(cmd.Context())
	if err != nil {
		return err
	}
	for _, p := range all {
		fmt.Fprintln(out, progressLine(p.Life, p.Completed, p.Total, p.Percentage))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	st, err := a.Service().Statistics(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, progressLine("Done", st.Done, st.Total, st.Percentage))
	for _, row := range []struct {
		status quest.Status
		count  int
	}{
		{quest.StatusUnobtained, st.Unobtained},
		{quest.StatusObtained, st.Obtained},
		{quest.StatusCompleted, st.Completed},
		{quest.StatusTurnedIn, st.TurnedIn},
	} {
		fmt.Fprintf(out, "%s %d\n", labelStyle.Render(row.status.String()+":"), row.count)
	}
	fmt.Fprintf(out, "%s %d\n", labelStyle.Render("Total:"), st.Total)
	return nil
}

func runLocations(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	counts, err := a.Service().LocationSummary(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(counts) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no locations"))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("LOCATION", "REGION", "UNOBTAINED", "OBTAINED", "COMPLETED", "TURNED IN", "TOTAL").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, c := range counts {
		t.Row(c.Location, c.Region,
			strconv.Itoa(c.Counts[quest.StatusUnobtained]),
			strconv.Itoa(c.Counts[quest.StatusObtained]),
			strconv.Itoa(c.Counts[quest.StatusCompleted]),
			strconv.Itoa(c.Counts[quest.StatusTurnedIn]),
			strconv.Itoa(c.Total()),
		)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
