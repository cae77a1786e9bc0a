package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/streamgrab/streamgrab/internal/config"
	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/utils"
	"github.com/streamgrab/streamgrab/internal/worker"
)

const (
	portFileName = "port"
	pidFileName  = "pid"
	lockFileName = "server.lock"
)

// newBridge connects to the server named by --host, or runs the worker
// in-process when no host is given.
func newBridge(ctx context.Context) (core.WorkerBridge, error) {
	if target := resolveHostTarget(); target != "" {
		return dialRemote(ctx, target, false)
	}

	binary, err := worker.LocateBinary(settings.Worker.BinaryPath)
	if err != nil {
		return nil, err
	}
	utils.Debug("Using worker binary %s", binary)
	return core.NewLocalBridge(binary), nil
}

// dialRemote creates a remote bridge and verifies the server answers.
func dialRemote(ctx context.Context, target string, insecureHTTP bool) (*core.RemoteBridge, error) {
	baseURL, err := resolveConnectBaseURL(target, insecureHTTP)
	if err != nil {
		return nil, err
	}
	token, err := resolveTokenForTarget(target)
	if err != nil {
		return nil, err
	}

	bridge := core.NewRemoteBridge(baseURL, token)
	hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := bridge.Health(hctx); err != nil {
		_ = bridge.Shutdown()
		return nil, fmt.Errorf("failed to connect to %s: %w", baseURL, err)
	}
	return bridge, nil
}

func resolveHostTarget() string {
	if host := strings.TrimSpace(globalHost); host != "" {
		return host
	}
	return strings.TrimSpace(os.Getenv("STREAMGRAB_HOST"))
}

// resolveTokenForTarget picks the bearer token for target. The local token
// file is only used for loopback targets.
func resolveTokenForTarget(target string) (string, error) {
	if token := strings.TrimSpace(globalToken); token != "" {
		return token, nil
	}
	if token := strings.TrimSpace(os.Getenv("STREAMGRAB_TOKEN")); token != "" {
		return token, nil
	}
	if isLoopbackHost(hostnameFromTarget(target)) {
		return ensureAuthToken()
	}
	return "", errors.New("no token provided, use --token or set STREAMGRAB_TOKEN")
}

// readActivePort reads the port from the port file
func readActivePort() int {
	data, err := os.ReadFile(filepath.Join(config.GetRuntimeDir(), portFileName))
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return port
}

func saveActivePort(port int) {
	portFile := filepath.Join(config.GetRuntimeDir(), portFileName)
	if err := os.WriteFile(portFile, []byte(strconv.Itoa(port)), 0o644); err != nil {
		utils.Debug("Error writing port file: %v", err)
	}
	utils.Debug("HTTP server listening on port %d", port)
}

func removeActivePort() {
	portFile := filepath.Join(config.GetRuntimeDir(), portFileName)
	if err := os.Remove(portFile); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing port file: %v", err)
	}
}

func savePID() {
	pidFile := filepath.Join(config.GetRuntimeDir(), pidFileName)
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		utils.Debug("Error writing PID file: %v", err)
	}
}

func removePID() {
	pidFile := filepath.Join(config.GetRuntimeDir(), pidFileName)
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		utils.Debug("Error removing PID file: %v", err)
	}
}

func readPID() int {
	data, err := os.ReadFile(filepath.Join(config.GetRuntimeDir(), pidFileName))
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

// instanceLock guards against two servers sharing the runtime directory.
var instanceLock *flock.Flock

// AcquireLock takes the server lock. It reports false when another
// process holds it.
func AcquireLock() (bool, error) {
	lock := flock.New(filepath.Join(config.GetRuntimeDir(), lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to lock %s: %w", lock.Path(), err)
	}
	if locked {
		instanceLock = lock
	}
	return locked, nil
}

// ReleaseLock releases a lock taken by AcquireLock.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	err := instanceLock.Unlock()
	instanceLock = nil
	return err
}

// findAvailablePort tries ports starting from 'start' until one is available
func findAvailablePort(start int) (int, net.Listener) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return port, ln
		}
	}
	return 0, nil
}

// readURLsFromFile reads manifest URLs from a file, one per line. Blank
// lines and lines starting with # are skipped.
func readURLsFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	scanner := bufio.NewScanner(file)
	// Signed manifest URLs can be long.
	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return urls, nil
}

// parseHeaderFlags turns repeated -H "Name: Value" flags into headers.
// Unlike the TUI field, a flag value may contain ';' (cookies).
func parseHeaderFlags(values []string) []types.RequestHeader {
	var headers []types.RequestHeader
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		if !ok {
			utils.Debug("Ignoring malformed header %q", v)
			continue
		}
		headers = append(headers, types.RequestHeader{Name: name, Value: value})
	}
	return types.FilterHeaders(headers)
}
