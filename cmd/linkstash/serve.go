package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linkstash/pkg/agent"
	"linkstash/pkg/browser"
	"linkstash/pkg/logger"
	"linkstash/pkg/messenger/httpbridge"
	"linkstash/pkg/ui"
)

var (
	serveListen     string
	serveHeadless   bool
	serveBrowserURL string
)

var serveCmd = &cobra.Command{
	Use:   "serve <url>",
	Short: "Open a page and expose its agent over HTTP",
	Long: `Open a page in the browser and serve its agent on a local HTTP bridge.

Commands are posted to /command as JSON and events stream from /events.
Run 'linkstash collect --remote <address>' from another terminal to
collect the page, or drive it with any HTTP client.`,
	Example: `  linkstash serve https://www.youtube.com/@someone/videos --headless=false
  linkstash serve https://www.pinterest.com/someone/recipes/ --listen 127.0.0.1:9000`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "address to listen on (default 127.0.0.1:7878)")
	serveCmd.Flags().BoolVar(&serveHeadless, "headless", true, "run the browser without a window")
	serveCmd.Flags().StringVar(&serveBrowserURL, "browser-url", "", "DevTools websocket URL of a running browser")
}

func runServe(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd)
	fs := cmd.Flags()
	if fs.Changed("listen") {
		flags["listen"] = serveListen
	}
	if fs.Changed("headless") {
		flags["headless"] = serveHeadless
	}
	if fs.Changed("browser-url") {
		flags["browser-url"] = serveBrowserURL
	}
	cfg, err := loadConfig(flags, nil)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	br, err := browser.Launch(ctx, cfg.Browser, log)
	if err != nil {
		return err
	}
	defer br.Close()

	page, err := br.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer page.Close()

	bridge := httpbridge.NewServer(nil, httpbridge.Options{
		MaxCommandsPerMinute: cfg.Server.MaxCommandsPerMin,
		EventBuffer:          cfg.Server.EventBuffer,
		Logger:               log,
	})
	defer bridge.Close()

	ag := agent.New(page, bridge, agentOptions(cfg, log.WithField("url", args[0])))
	bridge.SetHandler(ag)
	go ag.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           bridge.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.LogComponentStart("bridge", map[string]interface{}{
		"listen": cfg.Server.Listen,
		"page":   args[0],
	})
	ui.PrintInfo("Page", args[0])
	ui.PrintInfo("Bridge", fmt.Sprintf("http://%s", cfg.Server.Listen))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge stopped: %w", err)
		}
	case <-ctx.Done():
	}

	// event streams stay open until the bridge closes them
	bridge.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("bridge shutdown")
	}
	logger.LogComponentStop("bridge", "interrupted")
	return nil
}
