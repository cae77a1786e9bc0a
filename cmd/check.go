package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/streamgrab/streamgrab/internal/config"
	"github.com/streamgrab/streamgrab/internal/worker"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that N_m3u8DL-RE can be found",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := color.Output
		binary, err := worker.LocateBinary(settings.Worker.BinaryPath)
		if err != nil {
			cmd.SilenceUsage = true
			_, _ = failColor.Fprintf(w, "✖ %v\n", err)
			_, _ = fmt.Fprintf(w, "Install N_m3u8DL-RE or set worker.binary_path in %s\n", config.GetSettingsPath())
			return err
		}
		_, _ = okColor.Fprintf(w, "✔ worker: %s\n", binary)
		_, _ = fmt.Fprintf(w, "  settings: %s\n", config.GetSettingsPath())
		_, _ = fmt.Fprintf(w, "  save dir: %s\n", settings.General.DownloadLocation)
		_, _ = fmt.Fprintf(w, "  logs:     %s\n", config.GetLogsDir())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
