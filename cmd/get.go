package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/streamgrab/streamgrab/internal/engine/progress"
	"github.com/streamgrab/streamgrab/internal/engine/types"
	"github.com/streamgrab/streamgrab/internal/session"
	"github.com/streamgrab/streamgrab/internal/utils"
)

// barScale is the bar total; percentages are drawn with two decimals.
const barScale = 100 * 100

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	infoColor = color.New(color.FgCyan)
)

var getCmd = &cobra.Command{
	Use:   "get [url]...",
	Short: "Download streams without the TUI",
	Long: `get loads each manifest, picks tracks from the flags and downloads them with
progress bars. Tracks are chosen with "best" (first listed), "none", a
1-based index as printed by "streamgrab options", or text matched against
the track label.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		urls := append([]string(nil), args...)
		if batchFile, _ := cmd.Flags().GetString("batch"); batchFile != "" {
			fileURLs, err := readURLsFromFile(batchFile)
			if err != nil {
				return err
			}
			urls = append(urls, fileURLs...)
		}
		if len(urls) == 0 {
			return errors.New("no manifest URL given")
		}

		name, _ := cmd.Flags().GetString("name")
		if name != "" && len(urls) > 1 {
			return errors.New("--name can only be used with a single URL")
		}
		headerFlags, _ := cmd.Flags().GetStringArray("header")
		video, _ := cmd.Flags().GetString("video")
		audio, _ := cmd.Flags().GetString("audio")
		sub, _ := cmd.Flags().GetString("sub")
		audioOnly, _ := cmd.Flags().GetBool("audio-only")
		noMerge, _ := cmd.Flags().GetBool("no-merge")
		quiet, _ := cmd.Flags().GetBool("quiet")

		job := getJob{
			selection: trackSelection{
				Video:     trackChoice(video),
				Audio:     trackChoice(audio),
				Subtitle:  trackChoice(sub),
				AudioOnly: audioOnly,
			},
			name:    name,
			headers: parseHeaderFlags(headerFlags),
			merge:   settings.Session.AutoMerge && !noMerge,
			quiet:   quiet,
			out:     color.Output,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bridge, err := newBridge(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := bridge.Shutdown(); err != nil {
				utils.Debug("Error shutting down bridge: %v", err)
			}
		}()

		hs := newHeadlessSession(bridge, true)
		defer hs.Close()

		failed := 0
		for _, url := range urls {
			if err := job.run(ctx, hs, url); err != nil {
				failed++
				_, _ = failColor.Fprintf(job.out, "✖ %s: %v\n", url, err)
				if ctx.Err() != nil {
					break
				}
			}
		}
		if failed > 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("%d of %d downloads failed", failed, len(urls))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringP("batch", "b", "", "File containing manifest URLs (one per line)")
	getCmd.Flags().StringP("name", "n", "", "Output name (default: derived from the URL)")
	getCmd.Flags().StringArrayP("header", "H", nil, `Request header "Name: Value" (repeatable)`)
	getCmd.Flags().String("video", string(choiceBest), "Video track")
	getCmd.Flags().String("audio", string(choiceBest), "Audio track")
	getCmd.Flags().String("sub", string(choiceNone), "Subtitle track")
	getCmd.Flags().Bool("audio-only", false, "Download the audio track only")
	getCmd.Flags().Bool("no-merge", false, "Keep tracks as separate files")
	getCmd.Flags().BoolP("quiet", "q", false, "No progress bars")
}

// getJob holds the per-invocation options of the get command.
type getJob struct {
	selection trackSelection
	name      string
	headers   []types.RequestHeader
	merge     bool
	quiet     bool
	out       io.Writer
}

// run downloads one manifest and returns an error unless it completed.
func (j getJob) run(ctx context.Context, hs *headlessSession, url string) error {
	// a finished session must be dismissed before the next load
	hs.ctrl.Dismiss()

	_, _ = infoColor.Fprintf(j.out, "Loading %s\n", url)
	if err := hs.ctrl.LoadOptions(ctx, url, j.headers); err != nil {
		return errors.New(session.UserMessage(err))
	}

	name := j.name
	if name == "" {
		name = utils.DefaultOutputName(url)
	}
	req, err := j.selection.buildRequest(hs.ctrl.View(), name, j.headers, j.merge)
	if err != nil {
		return err
	}
	printSelection(j.out, req)

	var bars *trackBars
	var p *mpb.Progress
	if !j.quiet {
		p = mpb.NewWithContext(ctx, mpb.WithOutput(j.out), mpb.WithWidth(40))
		bars = newTrackBars(p, req)
	}

	if err := hs.ctrl.Start(ctx, req); err != nil {
		if bars != nil {
			bars.finish(false)
			p.Wait()
		}
		return errors.New(session.UserMessage(err))
	}

	v, err := hs.waitTerminal(ctx, func(v session.View) {
		if bars != nil {
			bars.update(v)
		}
	})
	if bars != nil {
		bars.finish(v.State == session.StateComplete)
		p.Wait()
	}
	if err != nil {
		return err
	}
	if v.State != session.StateComplete {
		return errors.New(v.Message)
	}
	_, _ = okColor.Fprintf(j.out, "✔ %s\n", v.Message)
	return nil
}

func printSelection(w io.Writer, req types.DownloadRequest) {
	line := func(kind string, t *types.TrackOption) {
		if t != nil {
			_, _ = fmt.Fprintf(w, "  %-9s %s\n", kind, t.Label)
		}
	}
	line("video", req.SelectedVideo)
	line("audio", req.SelectedAudio)
	line("subtitle", req.SelectedSubtitle)
}

// trackBars shows one bar per selected track plus the weighted total.
type trackBars struct {
	mu     sync.Mutex
	labels map[string]string
	bars   map[string]*mpb.Bar
	order  []string
}

func newTrackBars(p *mpb.Progress, req types.DownloadRequest) *trackBars {
	tb := &trackBars{labels: map[string]string{}, bars: map[string]*mpb.Bar{}}
	add := func(key string) {
		tb.order = append(tb.order, key)
		tb.bars[key] = p.AddBar(barScale,
			mpb.PrependDecorators(
				decor.Name(key, decor.WC{W: 9, C: decor.DindentRight}),
				decor.Percentage(decor.WC{W: 8}),
			),
			mpb.AppendDecorators(
				decor.Any(func(decor.Statistics) string { return tb.label(key) }),
			),
		)
	}

	add("total")
	if req.SelectedVideo != nil && !req.AudioOnly {
		add("video")
	}
	if req.SelectedAudio != nil {
		add("audio")
	}
	if req.SelectedSubtitle != nil && !req.AudioOnly {
		add("subtitle")
	}
	return tb
}

func (tb *trackBars) label(key string) string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.labels[key]
}

func (tb *trackBars) update(v session.View) {
	tb.mu.Lock()
	tb.labels["total"] = fmt.Sprintf("%s  ETA %s", v.Display.Speed, v.Display.ETA)
	tb.mu.Unlock()
	tb.set("total", v.Overall)

	if v.Snapshot == nil {
		return
	}
	for key, t := range map[string]*types.TrackProgress{
		"video":    v.Snapshot.Video,
		"audio":    v.Snapshot.Audio,
		"subtitle": v.Snapshot.Subtitle,
	} {
		if t == nil {
			continue
		}
		d := progress.FormatDisplay(t)
		tb.mu.Lock()
		tb.labels[key] = fmt.Sprintf("%s  %s", d.Downloaded, d.Speed)
		tb.mu.Unlock()
		tb.set(key, progress.TrackPercentage(t))
	}
}

func (tb *trackBars) set(key string, pct float64) {
	bar, ok := tb.bars[key]
	if !ok || bar.Completed() {
		return
	}
	bar.SetCurrent(int64(progress.Clamp(pct) * 100))
}

// finish completes every bar on success and aborts them otherwise, so
// Progress.Wait returns.
func (tb *trackBars) finish(success bool) {
	for _, key := range tb.order {
		bar := tb.bars[key]
		if bar.Completed() || bar.Aborted() {
			continue
		}
		if success {
			bar.SetCurrent(barScale)
		} else {
			bar.Abort(false)
		}
	}
}
