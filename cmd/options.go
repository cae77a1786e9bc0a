package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/session"
	"github.com/streamgrab/streamgrab/internal/utils"
)

var optionsCmd = &cobra.Command{
	Use:   "options <url>",
	Short: "List the tracks of a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		headerFlags, _ := cmd.Flags().GetStringArray("header")
		asJSON, _ := cmd.Flags().GetBool("json")

		bridge, err := newBridge(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := bridge.Shutdown(); err != nil {
				utils.Debug("Error shutting down bridge: %v", err)
			}
		}()

		hs := newHeadlessSession(bridge, false)
		defer hs.Close()

		if err := hs.ctrl.LoadOptions(cmd.Context(), args[0], parseHeaderFlags(headerFlags)); err != nil {
			cmd.SilenceUsage = true
			return errors.New(session.UserMessage(err))
		}

		opts := hs.ctrl.View().Options
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(opts)
		}
		printOptions(color.Output, opts)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionsCmd)
	optionsCmd.Flags().StringArrayP("header", "H", nil, `Request header "Name: Value" (repeatable)`)
	optionsCmd.Flags().Bool("json", false, "Print the tracks as JSON")
}

func printOptions(w io.Writer, opts *types.StreamOptions) {
	if opts.Empty() {
		_, _ = fmt.Fprintln(w, "The manifest lists no tracks.")
		return
	}
	heading := color.New(color.FgMagenta, color.Bold)
	section := func(title string, list []types.TrackOption) {
		_, _ = heading.Fprintf(w, "%s (%d)\n", title, len(list))
		if len(list) == 0 {
			_, _ = fmt.Fprintln(w, "  none")
		}
		for i, t := range list {
			_, _ = fmt.Fprintf(w, "  %2d  %s\n", i+1, t.Label)
		}
		_, _ = fmt.Fprintln(w)
	}
	section("Video", opts.Video)
	section("Audio", opts.Audio)
	section("Subtitles", opts.Subtitle)
}
