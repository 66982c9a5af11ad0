package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"linkstash/pkg/config"
	"linkstash/pkg/logger"
	"linkstash/pkg/store"
	"linkstash/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	logFormat     string
	noColor       bool
	notifications bool
	quiet         bool
	verbose       bool
	storeBackend  string
	storePath     string
)

var rootCmd = &cobra.Command{
	Use:   "linkstash",
	Short: "Collect post links from social feeds into named collections",
	Long: `linkstash drives a browser tab through an Instagram, TikTok, YouTube or
Pinterest page, scrolls until the feed stops growing and files every post
link it finds into a named collection.

Collections are stored locally and can be listed, renamed, deleted and
exported as CSV or JSON.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
		if noColor {
			ui.DisableColor()
		}

		switch cmd.Name() {
		case "version", "help", "show", "export", "linkstash":
			return
		}
		if isTerminal(os.Stdout) {
			ui.PrintLogo()
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .linkstash.yaml or ~/.config/linkstash/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "store backend (file, bolt, sqlite, memory)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "store location (default is the per-user data directory)")

	rootCmd.SetVersionTemplate(`linkstash {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// changedFlags collects the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects.
func changedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	fs := cmd.Flags()
	if fs.Changed("log-level") {
		flags["log-level"] = logLevel
	}
	if verbose {
		flags["log-level"] = "debug"
	} else if quiet && !fs.Changed("log-level") {
		flags["log-level"] = "error"
	}
	if fs.Changed("log-format") {
		flags["log-format"] = logFormat
	}
	if noColor {
		flags["no-color"] = true
	}
	if fs.Changed("notifications") {
		flags["notifications"] = notifications
	}
	if fs.Changed("store") {
		flags["store"] = storeBackend
	}
	if fs.Changed("store-path") {
		flags["store-path"] = storePath
	}
	return flags
}

// loadConfig merges flags into the configuration and installs the global
// logger. logOut replaces stderr for console logs; nil keeps stderr.
func loadConfig(flags map[string]interface{}, logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if logOut == nil {
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		return cfg, nil
	}
	l, err := logger.NewWithWriter(&cfg.Logging, logOut)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLogger(l)
	return cfg, nil
}

// openStore opens the configured backend and loads the collections
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	log := logger.GetLogger()
	backend, err := store.Open(cfg.Store, log)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, store.Options{Logger: log})
	if err := st.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
