package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/utils"
	"github.com/streamgrab/streamgrab/internal/worker"
)

// defaultServerPort is where port auto-discovery starts.
const defaultServerPort = 1700

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the streamgrab server (daemon)",
	Long:  `Start, stop, or check the status of the streamgrab server. The server runs N_m3u8DL-RE for remote TUI and CLI clients.`,
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the streamgrab server in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Attempt to acquire lock
		isMaster, err := AcquireLock()
		if err != nil {
			return err
		}
		if !isMaster {
			return errors.New("streamgrab server is already running")
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		portFlag, _ := cmd.Flags().GetInt("port")
		bindAddr, _ := cmd.Flags().GetString("bind")

		savePID()
		defer removePID()

		return runServer(cmd.Context(), bindAddr, portFlag)
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running streamgrab server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := readPID()
		if pid == 0 {
			fmt.Println("No running streamgrab server found (PID file missing).")
			return nil
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("error finding process: %w", err)
		}
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("error stopping server: %w", err)
		}

		fmt.Printf("Sent stop signal to process %d\n", pid)
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the status of the streamgrab server",
	Run: func(cmd *cobra.Command, args []string) {
		pid := readPID()
		if pid == 0 {
			fmt.Println("streamgrab server is NOT running.")
			return
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Printf("streamgrab server is NOT running (Process %d not found).\n", pid)
			return
		}
		// Sending signal 0 to check existence
		if err := process.Signal(syscall.Signal(0)); err != nil {
			fmt.Printf("streamgrab server is NOT running (Process %d dead).\n", pid)
			return
		}

		fmt.Printf("streamgrab server is running (PID: %d, Port: %d).\n", pid, readActivePort())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)

	serverStartCmd.Flags().IntP("port", "p", 0, "Port to listen on (default: first free port from 1700)")
	serverStartCmd.Flags().String("bind", "127.0.0.1", "Address to listen on")
}

// runServer serves the local worker until SIGINT/SIGTERM or ctx ends.
func runServer(ctx context.Context, bindAddr string, portFlag int) error {
	binary, err := worker.LocateBinary(settings.Worker.BinaryPath)
	if err != nil {
		return err
	}
	token, err := ensureAuthToken()
	if err != nil {
		return err
	}

	var port int
	var listener net.Listener
	if portFlag > 0 {
		port = portFlag
		listener, err = net.Listen("tcp", net.JoinHostPort(bindAddr, fmt.Sprint(port)))
		if err != nil {
			return fmt.Errorf("could not bind to port %d: %w", port, err)
		}
	} else if bindAddr == "127.0.0.1" {
		port, listener = findAvailablePort(defaultServerPort)
		if listener == nil {
			return errors.New("could not find available port")
		}
	} else {
		port = defaultServerPort
		listener, err = net.Listen("tcp", net.JoinHostPort(bindAddr, fmt.Sprint(port)))
		if err != nil {
			return fmt.Errorf("could not bind to port %d: %w", port, err)
		}
	}

	bridge := core.NewLocalBridge(binary)
	server, stopStreams := newAPIServer(bridge, token)
	defer stopStreams()

	saveActivePort(port)
	defer removeActivePort()

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	fmt.Printf("streamgrab %s running in server mode.\n", Version)
	fmt.Printf("Worker: %s\n", binary)
	fmt.Printf("HTTP server listening on %s\n", listener.Addr())
	fmt.Println("Press Ctrl+C to exit.")

	if ctx == nil {
		ctx = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = bridge.Shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	fmt.Println("\nShutting down...")
	shutdownServer(server, stopStreams)
	return bridge.Shutdown()
}

// newAPIServer builds the daemon's HTTP server. Request contexts derive from
// a base context that the returned func cancels, which ends open event
// streams.
func newAPIServer(bridge core.WorkerBridge, token string) (*http.Server, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	return &http.Server{
		Handler:           newAPIHandler(bridge, token),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}, cancel
}

// shutdownServer ends the event streams, then drains other requests.
func shutdownServer(server *http.Server, stopStreams context.CancelFunc) {
	stopStreams()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		utils.Debug("Error shutting down HTTP server: %v", err)
		_ = server.Close()
	}
}
