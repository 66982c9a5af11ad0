package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkstash/pkg/browser"
	"linkstash/pkg/collector"
	"linkstash/pkg/logger"
	"linkstash/pkg/ui"
)

var (
	selectName       string
	selectPick       string
	selectHeadless   bool
	selectBrowserURL string
)

var selectCmd = &cobra.Command{
	Use:   "select <tiktok-url>",
	Short: "Pick individual videos from a TikTok page",
	Long: `List the video links a TikTok page shows and store only the ones you pick.

The picked videos go to the collection the page would be collected into,
or to --name. Without --pick the list is shown and the picks are read from
the terminal; an empty answer cancels.`,
	Example: `  linkstash select https://www.tiktok.com/@someone
  linkstash select https://www.tiktok.com/@someone --pick 1,4-6 --name keepers`,
	Args: cobra.ExactArgs(1),
	RunE: runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)

	selectCmd.Flags().StringVarP(&selectName, "name", "n", "", "collection name (default is derived from the page)")
	selectCmd.Flags().StringVar(&selectPick, "pick", "", "videos to store by list number, e.g. 1,3-5")
	selectCmd.Flags().BoolVar(&selectHeadless, "headless", true, "run the browser without a window")
	selectCmd.Flags().StringVar(&selectBrowserURL, "browser-url", "", "DevTools websocket URL of a running browser")
}

func runSelect(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd)
	fs := cmd.Flags()
	if fs.Changed("headless") {
		flags["headless"] = selectHeadless
	}
	if fs.Changed("browser-url") {
		flags["browser-url"] = selectBrowserURL
	}
	if selectPick == "" && !isTerminal(os.Stdin) {
		return fmt.Errorf("no terminal to pick from, pass --pick")
	}
	cfg, err := loadConfig(flags, nil)
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

	br, err := browser.Launch(ctx, cfg.Browser, log)
	if err != nil {
		return err
	}
	defer br.Close()

	conn, release, err := pageOpener(br, cfg, log)(ctx, args[0])
	if err != nil {
		return err
	}
	defer release()

	c := collector.New(conn, st, collector.Options{
		PingTimeout: cfg.Scroll.PingTimeout,
		Logger:      log,
	})
	sel, err := c.Select(ctx, collector.Request{Name: selectName})
	if err != nil {
		return err
	}
	cancel := func() {
		cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer ccancel()
		if err := sel.Cancel(cctx); err != nil {
			log.WithError(err).Warn("Failed to leave selection mode")
		}
	}

	candidates, err := sel.Candidates(ctx)
	if err != nil {
		cancel()
		return err
	}
	if len(candidates) == 0 {
		cancel()
		return fmt.Errorf("no video links on %s", args[0])
	}

	for i, link := range candidates {
		fmt.Printf("%3d  %s\n", i+1, link)
	}

	answer := selectPick
	if answer == "" {
		fmt.Printf("\nPick videos for %s (e.g. 1,3-5), empty to cancel: ", ui.Cyan(sel.Collection()))
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			cancel()
			return nil
		}
		answer = strings.TrimSpace(line)
		if answer == "" {
			cancel()
			ui.PrintInfo("Aborted", "nothing stored")
			return nil
		}
	}

	picks, err := parsePicks(answer, len(candidates))
	if err != nil {
		cancel()
		return err
	}
	for _, n := range picks {
		if _, err := sel.Toggle(ctx, candidates[n-1]); err != nil {
			cancel()
			return err
		}
	}

	start := time.Now()
	sum, err := sel.Validate(ctx)
	res := collector.BatchResult{Job: args[0], Value: sum, Err: err, Duration: time.Since(start)}
	notifier := ui.NewNotifier(cfg.Notifications.Enabled)
	if printResults([]collector.BatchResult{res}, notifier, cfg.Notifications.OnError) > 0 {
		return err
	}
	return persistCheck(st)
}

// parsePicks turns "1,3-5" into the distinct 1-based numbers it names, in
// the order given. Every number must be within 1..n.
func parsePicks(list string, n int) ([]int, error) {
	var out []int
	seen := make(map[int]bool)
	add := func(v int) error {
		if v < 1 || v > n {
			return fmt.Errorf("pick %d is out of range 1-%d", v, n)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		return nil
	}

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid pick %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		for v := from; v <= to; v++ {
			if err := add(v); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no videos picked")
	}
	return out, nil
}
