package main

import (
	"fmt"
	"strconv"
	"strings"

	"questTracker/internal/models/quest"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var listFlags struct {
	status   string
	life     string
	location string
	search   string
	field    string
	tag      string
	sort     string
	desc     bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List quests matching a filter",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one quest",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.status, "status", "", "status name or number")
	f.StringVar(&listFlags.life, "life", "", "only quests of this life")
	f.StringVar(&listFlags.location, "location", "", "only quests available at this location")
	f.StringVar(&listFlags.search, "search", "", "substring to search for")
	f.StringVar(&listFlags.field, "field", "name", "search field: name, life, giver, description, turnin or all")
	f.StringVar(&listFlags.tag, "tag", "", "only quests with this tag")
	f.StringVar(&listFlags.sort, "sort", "default", "sort key: default, name, life, rank, status or last_modified")
	f.BoolVar(&listFlags.desc, "desc", false, "reverse the sort order")
	rootCmd.AddCommand(listCmd, showCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	filter := quest.Filter{
		Life:        listFlags.life,
		Location:    listFlags.location,
		Search:      listFlags.search,
		SearchField: quest.SearchField(listFlags.field),
		Tag:         listFlags.tag,
		SortBy:      quest.SortKey(listFlags.sort),
		Desc:        listFlags.desc,
	}
	if listFlags.status != "" {
		st, err := quest.ParseStatus(listFlags.status)
		if err != nil {
			return err
		}
		filter = filter.WithStatus(st)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	quests, err := a.Service().Query(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(quests) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no quests match"))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STATUS", "NAME", "LIFE", "RANK", "GIVER").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, q := range quests {
		t.Row(strconv.FormatInt(q.ID, 10), q.Status.String(), q.Name, q.Life, q.Rank, q.Giver)
	}
	fmt.Fprintln(out, t.Render())
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d quests", len(quests))))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	q, err := a.Service().GetQuest(cmd.Context(), id)
	if err != nil {
		return err
	}
	printQuest(cmd, q)
	return nil
}

func printQuest(cmd *cobra.Command, q *quest.Quest) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(fmt.Sprintf("#%d", q.ID)), titleStyle.Render(q.Name))
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(out, "%s %s\n", labelStyle.Render(label+":"), value)
		}
	}
	field("Status", statusLabel(q.Status))
	field("Life", strings.TrimSpace(quest.LifeIcon(q.Life)+" "+q.Life))
	field("Rank", q.Rank)
	field("Giver", q.Giver)
	field("Description", q.Description)
	field("Turn in", q.TurnIn)
	field("Locations", strings.Join(q.Locations, ", "))
	field("URL", q.URL)
	field("Tags", strings.Join(q.Tags, ", "))
	field("Note", q.Note)
	if !q.LastModified.IsZero() {
		field("Modified", q.LastModified.Local().Format("2006-01-02 15:04"))
	}
}
