package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkstash/pkg/agent"
	"linkstash/pkg/browser"
	"linkstash/pkg/collector"
	"linkstash/pkg/config"
	"linkstash/pkg/logger"
	"linkstash/pkg/messenger"
	"linkstash/pkg/messenger/httpbridge"
	"linkstash/pkg/models"
	"linkstash/pkg/scroll"
	"linkstash/pkg/store"
	"linkstash/pkg/ui"
	"linkstash/pkg/ui/tui"
)

var (
	collectName          string
	collectWait          int
	collectQuietWindow   time.Duration
	collectMaxDuration   time.Duration
	collectMode          string
	collectPollFavorites bool
	collectTUI           bool
	collectWorkers       int
	collectHeadless      bool
	collectBrowserURL    string
	collectRemote        string
	collectAll           bool
)

var collectCmd = &cobra.Command{
	Use:   "collect <url...>",
	Short: "Scroll one or more pages and store every post link found",
	Long: `Open each page in the browser, scroll until the feed stops growing and
merge the discovered links into a collection named after the page.

Instagram profiles and saved folders, TikTok profile tabs, YouTube channels
and playlists, and Pinterest boards are supported. Several URLs are
collected concurrently, one tab per URL.

With --remote the links come from a page already attached to a running
'linkstash serve' instance instead of a new browser tab.

With --all a TikTok page is not scrolled; every video link it shows right
away is stored in the all_tiktok_links collection.`,
	Example: `  # Collect a profile grid
  linkstash collect https://www.instagram.com/someone/

  # Store a TikTok tab under a custom name, scrolling every 3 ticks
  linkstash collect https://www.tiktok.com/@someone --name dances --wait 3

  # Collect the "More ideas" part of a Pinterest board
  linkstash collect https://www.pinterest.com/someone/recipes/ --mode moreIdeas

  # Several pages at once with the live view
  linkstash collect --tui --workers 2 URL1 URL2 URL3

  # Grab the video links a TikTok page shows without scrolling
  linkstash collect --all https://www.tiktok.com/@someone

  # Drive the page attached to a running bridge
  linkstash collect --remote http://127.0.0.1:7878`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVarP(&collectName, "name", "n", "", "collection name (default is derived from the page)")
	collectCmd.Flags().IntVarP(&collectWait, "wait", "w", 1, "ticks to wait between scroll actions")
	collectCmd.Flags().DurationVar(&collectQuietWindow, "quiet-window", 2*time.Second, "how long the page may stop growing before it counts as done")
	collectCmd.Flags().DurationVar(&collectMaxDuration, "max-duration", 0, "stop after this long even if the page keeps growing (0 means no limit)")
	collectCmd.Flags().StringVar(&collectMode, "mode", "", "pinterest section to collect (board, moreIdeas)")
	collectCmd.Flags().BoolVar(&collectPollFavorites, "poll-favorites", false, "poll a TikTok page as if it were the favorites tab")
	collectCmd.Flags().BoolVar(&collectTUI, "tui", false, "use interactive terminal UI with real-time progress")
	collectCmd.Flags().IntVar(&collectWorkers, "workers", 1, "pages collected at the same time")
	collectCmd.Flags().BoolVar(&collectHeadless, "headless", true, "run the browser without a window")
	collectCmd.Flags().StringVar(&collectBrowserURL, "browser-url", "", "DevTools websocket URL of a running browser")
	collectCmd.Flags().StringVar(&collectRemote, "remote", "", "base URL of a running 'linkstash serve' bridge")
	collectCmd.Flags().BoolVar(&collectAll, "all", false, "store every TikTok video link on the page without scrolling")
}

func runCollect(cmd *cobra.Command, args []string) error {
	if collectRemote == "" && len(args) == 0 {
		return fmt.Errorf("at least one URL is required")
	}
	if collectRemote != "" && len(args) > 0 {
		return fmt.Errorf("--remote collects the page attached to the bridge and takes no URLs")
	}
	if collectAll && collectName != "" {
		return fmt.Errorf("--all always stores into all_tiktok_links and cannot be combined with --name")
	}
	mode, err := parseMode(collectMode)
	if err != nil {
		return err
	}

	flags := changedFlags(cmd)
	fs := cmd.Flags()
	if fs.Changed("wait") {
		flags["wait"] = collectWait
	}
	if fs.Changed("quiet-window") {
		flags["quiet"] = collectQuietWindow
	}
	if fs.Changed("max-duration") {
		flags["max-duration"] = collectMaxDuration
	}
	if fs.Changed("headless") {
		flags["headless"] = collectHeadless
	}
	if fs.Changed("browser-url") {
		flags["browser-url"] = collectBrowserURL
	}

	useTUI := collectTUI
	if useTUI && !isTerminal(os.Stdout) {
		ui.PrintWarning("--tui needs a terminal, falling back to plain output")
		useTUI = false
	}

	// the live view owns the screen; console logs only go to the log file
	var logOut io.Writer
	if useTUI {
		logOut = io.Discard
	}
	cfg, err := loadConfig(flags, logOut)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	notifier := ui.NewNotifier(cfg.Notifications.Enabled)
	var finishNotifier *ui.Notifier
	if cfg.Notifications.OnComplete {
		finishNotifier = notifier
	}

	var reporter ui.Reporter = ui.NopReporter{}
	var view *tui.TUI
	viewDone := make(chan struct{})
	switch {
	case useTUI:
		view = tui.NewTUI()
		go func() {
			defer close(viewDone)
			if err := view.Start(); err != nil {
				log.WithError(err).Error("terminal UI failed")
			}
			// quitting the view ends the run
			stop()
		}()
		view.WatchStore(st)
		reporter = view
	case !quiet:
		reporter = ui.NewProgressDisplay(os.Stdout, !isTerminal(os.Stdout), finishNotifier)
	}

	opts := collector.Options{
		PingTimeout:  cfg.Scroll.PingTimeout,
		PollInterval: cfg.Scroll.PollInterval,
		IdleCheck:    3 * cfg.Scroll.TickInterval,
		Logger:       log,
		Reporter:     reporter,
	}
	req := collector.Request{
		Name:          collectName,
		PinterestMode: mode,
		PollFavorites: collectPollFavorites,
	}
	if fs.Changed("wait") {
		req.WaitTime = &collectWait
	}
	action := collector.RunAction(req)
	if collectAll {
		action = func(ctx context.Context, c *collector.Collector) (collector.Summary, error) {
			return c.CollectAllOnPage(ctx)
		}
	}

	logger.LogComponentStart("collect", map[string]interface{}{
		"urls":    len(args),
		"workers": collectWorkers,
		"remote":  collectRemote,
		"all":     collectAll,
		"store":   cfg.Store.Backend,
	})

	var results []collector.BatchResult
	switch {
	case collectRemote != "":
		results = []collector.BatchResult{collectRemotePage(ctx, st, opts, action, view)}
	default:
		br, err := browser.Launch(ctx, cfg.Browser, log)
		if err != nil {
			stopView(view, viewDone)
			return err
		}
		defer br.Close()

		open := pageOpener(br, cfg, log)
		if len(args) == 1 {
			results = []collector.BatchResult{collectPage(ctx, args[0], open, st, opts, action, view)}
		} else {
			if view != nil {
				view.SetControls(nil, stop)
			}
			results = collector.Batch(ctx, args, open, st, collector.BatchOptions{
				Options: opts,
				Workers: collectWorkers,
				Action:  action,
			})
		}
	}

	stopView(view, viewDone)
	logger.LogComponentStop("collect", "done")

	// the spinner display notifies on its own
	if (useTUI || quiet) && finishNotifier != nil {
		for _, r := range results {
			if r.Err == nil && !r.Value.Cancelled {
				finishNotifier.CollectionDone(r.Value.Collection, r.Value.Added, r.Value.Total)
			}
		}
	}

	failed := printResults(results, notifier, cfg.Notifications.OnError)
	if st.PersistFailures() > 0 {
		ui.PrintWarning("Some changes could not be saved", fmt.Sprintf("%d failed writes, see the log", st.PersistFailures()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d pages failed", failed, len(results))
	}
	return nil
}

func parseMode(s string) (models.PinterestMode, error) {
	switch models.PinterestMode(s) {
	case "":
		return "", nil
	case models.PinterestBoard, models.PinterestMoreIdeas:
		return models.PinterestMode(s), nil
	}
	return "", fmt.Errorf("invalid --mode %q (board, moreIdeas)", s)
}

// pageOpener opens a tab per URL and attaches an agent to it over an
// in-process pipe.
func pageOpener(br *browser.Browser, cfg *config.Config, log logger.Logger) collector.OpenFunc {
	return func(ctx context.Context, url string) (messenger.Conn, func(), error) {
		page, err := br.Open(ctx, url)
		if err != nil {
			return nil, nil, err
		}

		pipe := messenger.NewPipe(nil, cfg.Server.EventBuffer)
		ag := agent.New(page, pipe, agentOptions(cfg, log.WithField("url", url)))
		pipe.SetHandler(ag)

		agentCtx, cancel := context.WithCancel(ctx)
		go ag.Run(agentCtx)

		release := func() {
			cancel()
			pipe.Close()
			page.Close()
		}
		return pipe, release, nil
	}
}

func agentOptions(cfg *config.Config, log logger.Logger) agent.Options {
	return agent.Options{
		Scroll: scroll.Options{
			Wait:         cfg.Scroll.WaitTime,
			Quiet:        cfg.Scroll.QuietWindow,
			Interval:     cfg.Scroll.TickInterval,
			MaxPerSecond: cfg.Scroll.MaxScrollsPerSecond,
			MaxDuration:  cfg.Scroll.MaxDuration,
			Logger:       log,
		},
		WatchInterval: cfg.Scroll.PollInterval,
		Logger:        log,
	}
}

// collectPage runs a single page with the pause and cancel keys wired to
// its collector.
func collectPage(ctx context.Context, url string, open collector.OpenFunc, st *store.Store, opts collector.Options, action collector.Action, view *tui.TUI) collector.BatchResult {
	start := time.Now()
	res := collector.BatchResult{Job: url}
	conn, release, err := open(ctx, url)
	if err != nil {
		res.Err = err
		res.Value = collector.Summary{URL: url}
		res.Duration = time.Since(start)
		return res
	}
	defer release()

	c := collector.New(conn, st, opts)
	bindControls(ctx, view, c)
	res.Value, res.Err = action(ctx, c)
	if res.Value.URL == "" {
		res.Value.URL = url
	}
	res.Duration = time.Since(start)
	return res
}

func collectRemotePage(ctx context.Context, st *store.Store, opts collector.Options, action collector.Action, view *tui.TUI) collector.BatchResult {
	start := time.Now()
	res := collector.BatchResult{Job: collectRemote}
	client, err := httpbridge.Dial(ctx, collectRemote, opts.Logger)
	if err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}
	defer client.Close()

	c := collector.New(client, st, opts)
	bindControls(ctx, view, c)
	res.Value, res.Err = action(ctx, c)
	res.Duration = time.Since(start)
	return res
}

func bindControls(ctx context.Context, view *tui.TUI, c *collector.Collector) {
	if view == nil {
		return
	}
	view.SetControls(func(paused bool) {
		var err error
		if paused {
			err = c.Pause(ctx)
		} else {
			err = c.Resume(ctx)
		}
		if err != nil {
			view.LogError("%v", err)
		}
	}, c.Cancel)
}

func stopView(view *tui.TUI, done <-chan struct{}) {
	if view == nil {
		return
	}
	view.Stop()
	<-done
}

// printResults prints one line per page and returns how many failed
func printResults(results []collector.BatchResult, notifier *ui.Notifier, notifyErrors bool) int {
	failed := 0
	for _, r := range results {
		sum := r.Value
		if r.Err != nil {
			failed++
			ui.PrintError("Failed "+r.Job, r.Err.Error())
			if notifyErrors {
				notifier.SendError("linkstash", fmt.Sprintf("%s: %v", r.Job, r.Err))
			}
			continue
		}
		if quiet {
			continue
		}
		label := fmt.Sprintf("%s/%s", sum.Platform, sum.Collection)
		line := fmt.Sprintf("%s: %d new, %d total in %s", label, sum.Added, sum.Total, ui.FormatDuration(sum.Duration))
		switch {
		case sum.Cancelled:
			ui.PrintWarning(line + " (cancelled)")
		case sum.Reason != "":
			ui.PrintSuccess(line + " (" + reasonText(sum.Reason) + ")")
		default:
			ui.PrintSuccess(line)
		}
	}
	return failed
}

func reasonText(reason string) string {
	switch reason {
	case scroll.ReasonNoNewContent:
		return "no new content"
	case scroll.ReasonBoardExhausted:
		return "board exhausted"
	case scroll.ReasonMaxDuration:
		return "time limit reached"
	case collector.ReasonAgentIdle:
		return "page stopped scrolling"
	case collector.ReasonBookmarked:
		return "bookmarked"
	case collector.ReasonPageLinks:
		return "links on page"
	case collector.ReasonSelection:
		return "selection"
	}
	return reason
}
