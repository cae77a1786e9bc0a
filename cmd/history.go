package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/streamgrab/streamgrab/internal/config"
	"github.com/streamgrab/streamgrab/internal/history"
	"github.com/streamgrab/streamgrab/internal/session"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show finished downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		clearAll, _ := cmd.Flags().GetBool("clear")
		remove, _ := cmd.Flags().GetString("delete")

		store, err := history.Open(history.DefaultPath(config.GetStateDir()))
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ctx := cmd.Context()
		switch {
		case clearAll:
			n, err := store.Clear(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d entries.\n", n)
			return nil
		case remove != "":
			id, err := resolveHistoryID(ctx, store, remove)
			if err != nil {
				return err
			}
			return store.Delete(ctx, id)
		}

		if limit == 0 {
			limit = settings.Session.HistoryLimit
		}
		return printHistory(ctx, color.Output, store, limit)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 0, "Number of entries to show (default: history_limit setting, -1 for all)")
	historyCmd.Flags().Bool("clear", false, "Remove every entry")
	historyCmd.Flags().String("delete", "", "Remove the entry with this session id (or unique prefix)")
}

func printHistory(ctx context.Context, w io.Writer, store *history.Store, limit int) error {
	if store == nil {
		return errors.New("history store not open")
	}
	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No downloads recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FINISHED\tSTATE\tNAME\tSIZE\tTYPE\tTOOK\tID")
	for _, e := range entries {
		size := "-"
		if e.Size > 0 {
			size = humanize.Bytes(uint64(e.Size))
		}
		mediaType := e.MediaType
		if mediaType == "" {
			mediaType = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(e.FinishedAt),
			stateLabel(e.State),
			e.OutputName,
			size,
			mediaType,
			e.Duration().Round(1e9),
			shortID(e.ID),
		)
	}
	return tw.Flush()
}

func stateLabel(state string) string {
	switch state {
	case session.StateComplete.String():
		return color.GreenString(state)
	case session.StateFailed.String():
		return color.RedString(state)
	default:
		return state
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveHistoryID expands the short ids shown by the history table.
func resolveHistoryID(ctx context.Context, store *history.Store, partialID string) (string, error) {
	entries, err := store.List(ctx, 0)
	if err != nil {
		return "", err
	}
	candidates := make([]string, 0, len(entries))
	for _, e := range entries {
		candidates = append(candidates, e.ID)
	}
	return resolveIDFromCandidates(partialID, candidates)
}

func resolveIDFromCandidates(partialID string, candidates []string) (string, error) {
	var matches []string
	seen := make(map[string]bool)
	for _, id := range candidates {
		if strings.HasPrefix(id, partialID) && !seen[id] {
			matches = append(matches, id)
			seen[id] = true
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no history entry matches %q", partialID)
	default:
		return "", fmt.Errorf("ambiguous ID prefix '%s' matches %d entries", partialID, len(matches))
	}
}
