package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgurstats/pkg/config"
	"imgurstats/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage imgurstats configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (IMGURSTATS_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Write a configuration file holding every option at its default value.

The file is written to $XDG_CONFIG_HOME/imgurstats/config.yaml unless a
different path is given with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the configuration after every source has been applied.

The session cookie is masked.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Run:   runConfigValidate,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "imgurstats %s (commit: %s, built: %s)\n", version, gitCommit, buildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "Go Version: %s\nOS/Arch: %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store your imgur session with 'imgurstats auth login'")
	fmt.Println("2. Run 'imgurstats config validate' after editing the file")
	fmt.Println("3. Fetch your posts with 'imgurstats fetch posts'")
}

func maskCookie(cookie string) string {
	if cookie == "" {
		return ""
	}
	if len(cookie) > 8 {
		return cookie[:4] + "..." + cookie[len(cookie)-4:]
	}
	return "***"
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, commandFlags(nil))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	displayCfg := *cfg
	displayCfg.Imgur.Cookie = maskCookie(displayCfg.Imgur.Cookie)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile != "" {
		ui.PrintInfo("Validating configuration", configFile)
	}

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings := []string{}
	if cfg.Fetch.AssumeYes {
		warnings = append(warnings, "fetch.assume_yes skips the confirmation before every full fetch")
	}
	if cfg.Storage.SyncWrites && cfg.Storage.Driver == "sqlite" {
		warnings = append(warnings, "storage.sync_writes only applies to the badger store")
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
	fmt.Printf("  Store: %s at %s\n", cfg.Storage.Driver, cfg.Storage.Path)
	fmt.Printf("  Pages per round: %d (at most %d rounds)\n", cfg.Fetch.PagesPerRound, cfg.Fetch.MaxRounds)
	fmt.Printf("  Rate limit: %.1f requests/second\n", cfg.RateLimit.RequestsPerSecond)
	fmt.Printf("  Top list: %d saved, %d shown\n", cfg.Ranking.SaveSize, cfg.Ranking.DisplaySize)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
