package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/streamgrab/streamgrab/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the active settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		showPath, _ := cmd.Flags().GetBool("path")

		if showPath {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetSettingsPath())
			return nil
		}
		return writeSettings(cmd.OutOrStdout(), settings, asJSON)
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveSettings(config.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Settings reset (%s)\n", config.GetSettingsPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsResetCmd)
	settingsCmd.Flags().Bool("json", false, "Print as JSON instead of YAML")
	settingsCmd.Flags().Bool("path", false, "Print the settings file path")
}

func writeSettings(w io.Writer, s *config.Settings, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
