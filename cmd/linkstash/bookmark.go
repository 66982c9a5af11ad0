package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"linkstash/pkg/browser"
	"linkstash/pkg/collector"
	"linkstash/pkg/logger"
	"linkstash/pkg/ui"
)

var (
	bookmarkHeadless   bool
	bookmarkBrowserURL string
	bookmarkWorkers    int
)

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark <video-url...>",
	Short: "Store single TikTok videos in single_bookmarks",
	Long: `Open each TikTok video and store it in the single_bookmarks collection.

The address the page settles on is stored, so share links such as
vm.tiktok.com redirects end up under the canonical video URL.`,
	Example: `  linkstash bookmark https://www.tiktok.com/@someone/video/7234567890123456789
  linkstash bookmark https://vm.tiktok.com/ZMabcdef/ https://vm.tiktok.com/ZMghijkl/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBookmark,
}

func init() {
	rootCmd.AddCommand(bookmarkCmd)

	bookmarkCmd.Flags().BoolVar(&bookmarkHeadless, "headless", true, "run the browser without a window")
	bookmarkCmd.Flags().StringVar(&bookmarkBrowserURL, "browser-url", "", "DevTools websocket URL of a running browser")
	bookmarkCmd.Flags().IntVar(&bookmarkWorkers, "workers", 1, "videos opened at the same time")
}

func runBookmark(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd)
	fs := cmd.Flags()
	if fs.Changed("headless") {
		flags["headless"] = bookmarkHeadless
	}
	if fs.Changed("browser-url") {
		flags["browser-url"] = bookmarkBrowserURL
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

	notifier := ui.NewNotifier(cfg.Notifications.Enabled)
	results := collector.Batch(ctx, args, pageOpener(br, cfg, log), st, collector.BatchOptions{
		Options: collector.Options{
			PingTimeout: cfg.Scroll.PingTimeout,
			Logger:      log,
		},
		Workers: bookmarkWorkers,
		Action: func(ctx context.Context, c *collector.Collector) (collector.Summary, error) {
			return c.BookmarkSingle(ctx)
		},
	})

	failed := printResults(results, notifier, cfg.Notifications.OnError)
	if failed > 0 {
		return fmt.Errorf("%d of %d videos failed", failed, len(results))
	}
	return persistCheck(st)
}
