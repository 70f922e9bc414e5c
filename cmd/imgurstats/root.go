package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"imgurstats/pkg/ui"
)

var (
	// Version information
	version   = "2.1.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	logFile     string
	storeDriver string
	dataDir     string
	metricsAddr string
	accountName string
	noColor     bool
	assumeYes   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "imgurstats",
	Short: "Collect and rank the view statistics of imgur accounts",
	Long: `imgurstats pages through the posts and images of an imgur account,
keeps the most viewed images in a ranked list and summarises the posts.

Saved data lives in a local store, so later runs only merge the newest pages
and show how the numbers changed since the previous fetch.

Typical use:
  imgurstats auth login          store the imgur session cookie
  imgurstats fetch posts         fetch every post of your account
  imgurstats fetch images        fetch the views of every image
  imgurstats refresh             merge the newest pages
  imgurstats top                 show the most viewed images`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.SetColor(false)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/imgurstats/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", "", "storage backend (badger, sqlite)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory of the local store")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while fetching")
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to every confirmation")

	rootCmd.SetVersionTemplate(`imgurstats {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
