package main

import (
	"fmt"
	"strings"

	"questTracker/internal/models/quest"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <status> <id>...",
	Short: "Set the status of one or more quests",
	Long: `Set the status of one or more quests.

The status is a number (0-3) or a name: unobtained, obtained, completed, turned_in.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runStatus,
}

var noteCmd = &cobra.Command{
	Use:   "note <id> [text...]",
	Short: "Set or clear a quest note",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNote,
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Add or remove quest tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <id> <tag>",
	Short: "Add a tag to a quest",
	Args:  cobra.ExactArgs(2),
	RunE:  runTag(true),
}

var tagRemoveCmd = &cobra.Command{
	Use:     "remove <id> <tag>",
	Aliases: []string{"rm"},
	Short:   "Remove a tag from a quest",
	Args:    cobra.ExactArgs(2),
	RunE:    runTag(false),
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every tag in use",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

func init() {
	tagCmd.AddCommand(tagAddCmd, tagRemoveCmd)
	rootCmd.AddCommand(statusCmd, noteCmd, tagCmd, tagsCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := quest.ParseStatus(args[0])
	if err != nil {
		return err
	}
	ids, err := parseIDs(args[1:])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(ids) == 1 {
		q, err := a.Service().SetStatus(cmd.Context(), ids[0], st)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "#%d %s: %s\n", q.ID, q.Name, statusLabel(q.Status))
		return nil
	}

	res, err := a.Service().BulkSetStatus(cmd.Context(), ids, st)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d quests set to %s\n", len(res.Updated), statusLabel(res.Status))
	if len(res.Missing) > 0 {
		fmt.Fprintf(out, "not found: %s\n", joinIDs(res.Missing))
	}
	return nil
}

func runNote(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	text := strings.Join(args[1:], " ")
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := a.Service().SetNote(cmd.Context(), id, text); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "note cleared on #%d\n", id)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "note saved on #%d\n", id)
	}
	return nil
}

func runTag(add bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		if add {
			err = a.Service().AddTag(cmd.Context(), id, args[1])
		} else {
			err = a.Service().RemoveTag(cmd.Context(), id, args[1])
		}
		if err != nil {
			return err
		}
		q, err := a.Service().GetQuest(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "#%d tags: %s\n", id, strings.Join(q.Tags, ", "))
		return nil
	}
}

func runTags(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	tags, err := a.Service().Tags(cmd.Context())
	if err != nil {
		return err
	}
	for _, t := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}
