package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/streamgrab/streamgrab/internal/config"
	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/history"
	"github.com/streamgrab/streamgrab/internal/session"
	"github.com/streamgrab/streamgrab/internal/tui"
	"github.com/streamgrab/streamgrab/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Connection flags shared by every command that talks to a worker.
var (
	globalHost  string
	globalToken string
)

// settings is loaded once per invocation by initializeGlobalState.
var settings *config.Settings

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "streamgrab [url]",
	Short:   "Terminal front end for the N_m3u8DL-RE stream downloader",
	Long:    `streamgrab lists the variants of an HLS or DASH manifest, lets you pick the tracks and drives N_m3u8DL-RE through the download.`,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeGlobalState()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		bridge, err := newBridge(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := bridge.Shutdown(); err != nil {
				utils.Debug("Error shutting down bridge: %v", err)
			}
		}()

		var url string
		if len(args) > 0 {
			url = args[0]
		}
		return startTUI(cmd.Context(), bridge, url)
	},
}

// startTUI runs the interactive front end on bridge until the user quits.
func startTUI(ctx context.Context, bridge core.WorkerBridge, url string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	feed := tui.NewViewFeed()
	opts := []session.Option{
		session.WithObserver(feed.Observe),
		session.WithEnumerateTimeout(settings.Session.Timeout),
	}
	if store := openHistory(); store != nil {
		defer func() { _ = store.Close() }()
		opts = append(opts, session.WithRecorder(store))
	}

	ctrl := session.NewController(bridge, settings.ToWorkerOptions(), opts...)
	defer ctrl.Close()

	tui.ApplyColorProfile(termenv.NewOutput(os.Stdout), settings.General.Theme)

	m := tui.InitialRootModel(ctx, ctrl, settings, feed)
	if url != "" {
		m = m.WithSourceURL(url)
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// openHistory opens the history database when history is enabled. Failures
// are logged and disable recording.
func openHistory() *history.Store {
	if !settings.Session.KeepHistory {
		return nil
	}
	store, err := history.Open(history.DefaultPath(config.GetStateDir()))
	if err != nil {
		logrus.WithError(err).Warn("history disabled")
		return nil
	}
	return store
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalHost, "host", "", "Use the streamgrab server at host:port (or set STREAMGRAB_HOST)")
	rootCmd.PersistentFlags().StringVar(&globalToken, "token", "", "Bearer token for --host (or set STREAMGRAB_TOKEN)")
	rootCmd.SetVersionTemplate("streamgrab version {{.Version}}\n")
}

// initializeGlobalState creates the application directories, loads the
// settings and sends logs to a file in the logs directory.
func initializeGlobalState() error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create application directories: %w", err)
	}

	loaded, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not read settings (%v), using defaults\n", err)
		loaded = config.DefaultSettings()
	}
	settings = loaded

	level := settings.General.LogLevel
	if settings.General.DebugMode {
		level = "debug"
	}
	logsDir := config.GetLogsDir()
	if _, err := utils.ConfigureDebug(logsDir, level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	if err := utils.CleanupLogs(logsDir, settings.General.LogRetentionCount); err != nil {
		utils.Debug("Error cleaning up logs: %v", err)
	}
	return nil
}
