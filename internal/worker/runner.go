// Package worker drives the external N_m3u8DL-RE process. It turns a
// request into a command line, supervises the process, and publishes what
// the process prints as typed events.
package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/engine/types"
)

const (
	maxLineSize  = 1024 * 1024
	stderrTail   = 20
	noStreamsMsg = "no streams found in manifest"
)

// Publisher receives the events produced by worker jobs.
type Publisher interface {
	Emit(msg any) bool
}

// RejectedError reports that the worker refused a request. Message is the
// worker's own text.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// LocateBinary resolves the worker executable from a path or a name on PATH.
func LocateBinary(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = types.DefaultWorkerBinary
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("worker binary %q not found: %w", path, err)
	}
	return resolved, nil
}

// Runner runs worker processes. Download jobs outlive the request that
// started them and end with the process or with Shutdown.
type Runner struct {
	binary string
	pub    Publisher
	log    *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*exec.Cmd
}

// NewRunner creates a runner for binary that publishes on pub.
func NewRunner(binary string, pub Publisher) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		binary: binary,
		pub:    pub,
		log:    logrus.WithField("component", "worker"),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*exec.Cmd),
	}
}

// Enumerate runs the worker in listing mode and publishes one
// StreamsReadyMsg for sessionID. It returns a *RejectedError when the
// worker cannot list the manifest.
func (r *Runner) Enumerate(ctx context.Context, sessionID, url string, headers []types.RequestHeader) error {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.binary, EnumerateArgs(url, headers)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log := r.log.WithField("session", sessionID)
	log.Debugf("enumerate: %s %s", r.binary, strings.Join(cmd.Args[1:], " "))

	runErr := cmd.Run()

	collector := NewStreamCollector(sessionID)
	for _, line := range splitOutput(stdout.String()) {
		collector.Add(line)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if collector.Count() == 0 {
		msg := failureMessage(runErr, stdout.String(), stderr.String())
		log.WithError(runErr).Warnf("enumerate rejected: %s", msg)
		return &RejectedError{Message: msg}
	}
	if runErr != nil {
		log.WithError(runErr).Warn("worker exited with an error after listing streams")
	}

	r.pub.Emit(collector.Result())
	return nil
}

// Start launches a download job for sessionID. A nil return means the job
// was accepted; its outcome arrives as progress, completion and error events.
func (r *Runner) Start(_ context.Context, sessionID string, req types.DownloadRequest, opts types.WorkerOptions) error {
	binary := r.binary
	if opts.BinaryPath != "" {
		binary = opts.BinaryPath
	}

	r.mu.Lock()
	if _, busy := r.jobs[sessionID]; busy {
		r.mu.Unlock()
		return &RejectedError{Message: fmt.Sprintf("session %s already has a running job", sessionID)}
	}
	if r.ctx.Err() != nil {
		r.mu.Unlock()
		return &RejectedError{Message: "worker is shutting down"}
	}

	cmd := exec.CommandContext(r.ctx, binary, StartArgs(req, opts)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.mu.Unlock()
		return &RejectedError{Message: err.Error()}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		r.mu.Unlock()
		return &RejectedError{Message: err.Error()}
	}
	if err := cmd.Start(); err != nil {
		r.mu.Unlock()
		return &RejectedError{Message: err.Error()}
	}
	r.jobs[sessionID] = cmd
	r.wg.Add(1)
	r.mu.Unlock()

	r.log.WithField("session", sessionID).Infof("started %s (pid %d)", req.OutputName, cmd.Process.Pid)
	go r.supervise(sessionID, cmd, stdout, stderr, time.Now())
	return nil
}

// Active returns the number of running download jobs.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Shutdown kills running jobs and waits for their supervisors to finish.
func (r *Runner) Shutdown() error {
	r.cancel()
	r.wg.Wait()
	return nil
}

func (r *Runner) supervise(sessionID string, cmd *exec.Cmd, stdout, stderr io.Reader, started time.Time) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		delete(r.jobs, sessionID)
		r.mu.Unlock()
	}()

	log := r.log.WithField("session", sessionID)

	var tail []string
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		sc := newLineScanner(stderr)
		for sc.Scan() {
			line := strings.TrimSpace(StripANSI(sc.Text()))
			if line == "" {
				continue
			}
			log.Debugf("stderr: %s", line)
			tail = append(tail, line)
			if len(tail) > stderrTail {
				tail = tail[1:]
			}
		}
		_, _ = io.Copy(io.Discard, stderr)
	}()

	tracker := &ProgressTracker{}
	sc := newLineScanner(stdout)
	for sc.Scan() {
		if snap, ok := tracker.Apply(sc.Text()); ok {
			r.pub.Emit(events.ProgressMsg{SessionID: sessionID, Snapshot: snap})
		}
	}
	if err := sc.Err(); err != nil {
		log.WithError(err).Warn("stopped parsing worker output")
		_, _ = io.Copy(io.Discard, stdout)
	}
	<-stderrDone

	waitErr := cmd.Wait()
	elapsed := time.Since(started)

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		log.Infof("job finished in %s", elapsed.Round(time.Second))
		r.pub.Emit(events.DownloadCompleteMsg{SessionID: sessionID, ExitCode: 0, Elapsed: elapsed})
	case r.ctx.Err() != nil:
		r.pub.Emit(events.DownloadErrorMsg{SessionID: sessionID, Err: errors.New("download interrupted: worker was shut down")})
	case errors.As(waitErr, &exitErr):
		log.Warnf("job exited with code %d: %s", exitErr.ExitCode(), strings.Join(tail, " | "))
		r.pub.Emit(events.DownloadCompleteMsg{SessionID: sessionID, ExitCode: exitErr.ExitCode(), Elapsed: elapsed})
	default:
		log.WithError(waitErr).Error("job failed")
		r.pub.Emit(events.DownloadErrorMsg{SessionID: sessionID, Err: waitErr})
	}
}

// newLineScanner splits on both \n and \r; the worker redraws progress
// lines with carriage returns.
func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	sc.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			return i + 1, data[:i], nil
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	})
	return sc
}

func splitOutput(out string) []string {
	return strings.FieldsFunc(out, func(r rune) bool { return r == '\n' || r == '\r' })
}

// failureMessage picks the most useful text the worker printed: its last
// ERROR line, then the last stderr line, then the process error.
func failureMessage(runErr error, stdout, stderr string) string {
	lines := append(splitOutput(stdout), splitOutput(stderr)...)
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(StripANSI(lines[i]))
		if idx := strings.Index(line, "ERROR"); idx >= 0 {
			msg := strings.TrimSpace(strings.TrimLeft(line[idx+len("ERROR"):], " :"))
			if msg != "" {
				return msg
			}
		}
	}
	errLines := splitOutput(stderr)
	for i := len(errLines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(StripANSI(errLines[i])); line != "" {
			return line
		}
	}
	if runErr != nil {
		return runErr.Error()
	}
	return noStreamsMsg
}
