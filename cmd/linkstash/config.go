package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"linkstash/pkg/config"
	"linkstash/pkg/store"
	"linkstash/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage linkstash configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (LINKSTASH_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.linkstash.yaml'
unless a different path is specified with the --config flag.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the configuration that results from every source. The browser
control URL is masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value ranges and enumerations
  - Path accessibility`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# linkstash configuration
#
# Every option can also be set with a LINKSTASH_ environment variable,
# for example LINKSTASH_HEADLESS=false or LINKSTASH_STORE_BACKEND=sqlite.

# Browser that hosts the scanned pages
browser:
  # Run without a window
  headless: true
  # Chrome binary; empty downloads or finds one
  bin: ""
  # DevTools websocket URL of an already running browser
  control_url: ""
  # Profile directory, keeps you logged in between runs
  user_data_dir: ""
  # Hide common automation fingerprints
  stealth: true
  navigation_timeout: 30s
  retry_attempts: 3

# Auto-scroll timing
scroll:
  # Ticks spent counting down between scroll actions
  wait_time: 1
  # How long the page height may stay flat before the run ends
  quiet_window: 2s
  tick_interval: 1s
  max_scrolls_per_second: 2
  # TikTok favorites poll and YouTube channel watch interval
  poll_interval: 1.5s
  ping_timeout: 3s
  # Upper bound for a whole run, 0s means none
  max_duration: 0s

# Collection persistence
store:
  # file, bolt, sqlite or memory
  backend: file
  # Empty uses the per-user data directory
  path: ""

export:
  # csv or json
  format: csv
  directory: .

# HTTP bridge used by 'linkstash serve'
server:
  listen: 127.0.0.1:7878
  max_commands_per_minute: 600
  event_buffer: 256

notifications:
  enabled: true
  on_complete: true
  on_error: true

logging:
  # debug, info, warn, error
  level: info
  # console or json
  format: console
  # Also write JSON lines here
  file: ""
  no_color: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".linkstash.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("To overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n\n", configPath)
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file")
	fmt.Println("2. Run 'linkstash config validate' to check the configuration")
	fmt.Println("3. Start collecting with 'linkstash collect <url>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, changedFlags(cmd))
	if err != nil {
		return err
	}

	displayCfg := *cfg
	if u := displayCfg.Browser.ControlURL; u != "" {
		if i := strings.LastIndex(u, "/"); i > 0 && i < len(u)-1 {
			displayCfg.Browser.ControlURL = u[:i+1] + "***"
		}
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (LINKSTASH_*)")
	fmt.Println("3. .env and ~/.linkstash.env")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("4. Configuration file: (first found of .linkstash.yaml, ~/.config/linkstash/config.yaml)")
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	} else {
		ui.PrintInfo("Validating configuration", "defaults and environment")
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	var warnings, problems []string

	if cfg.Browser.ControlURL == "" && cfg.Browser.UserDataDir == "" {
		warnings = append(warnings, "no browser profile configured, pages that need a login will be empty")
	}
	if !cfg.Browser.Headless && cfg.Browser.ControlURL != "" {
		warnings = append(warnings, "headless is ignored when attaching to a running browser")
	}

	if cfg.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create store directory: %v", err))
		}
	} else if strings.ToLower(cfg.Store.Backend) != "memory" {
		if _, err := store.DataDir(); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create data directory: %v", err))
		}
	}
	if cfg.Export.Directory != "" {
		if err := os.MkdirAll(cfg.Export.Directory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create export directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Store: %s %s\n", cfg.Store.Backend, cfg.Store.Path)
	fmt.Printf("  Scroll: wait %d ticks, quiet window %s, tick %s\n", cfg.Scroll.WaitTime, cfg.Scroll.QuietWindow, cfg.Scroll.TickInterval)
	fmt.Printf("  Export: %s to %s\n", cfg.Export.Format, cfg.Export.Directory)
	fmt.Printf("  Bridge: %s\n", cfg.Server.Listen)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
