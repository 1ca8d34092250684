// Package cmd provides the command-line interface for stanza.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --port, etc.) - highest priority
//	2. Individual environment variables (STANZA_SERVER_PORT, etc.)
//	3. Configuration file (.stanza.yml) - lowest priority
//
// Environment Variables:
//
//	STANZA_SERVER_PORT: Override server port
//	STANZA_SITE_BUILD_DIR: Override build output directory
//	STANZA_DEVELOPMENT_HOT_RELOAD: Enable/disable hot reload
//	And more following the STANZA_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stanza-dev/stanza/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stanza",
	Short: "A tiny static site generator with a hot-reloading dev server",
	Long: `Stanza builds a static site from HTML pages and templates, and serves it
locally with hot reload during development.

A project is four directories:
  pages/      one HTML file per page, with a two-line directive prologue
  templates/  reusable HTML shells with TITLE, BACKGROUND, CONTENT markers
  data/       static assets, copied into the build verbatim
  build/      the generated site (never edit by hand)

Quick Start:
  stanza init                     Scaffold a new project
  stanza build                    Build the site once
  stanza serve                    Serve with hot reload on :1313`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .stanza.yml)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// bindViperFlags binds each named flag in the set to its viper key.
func bindViperFlags(fs *pflag.FlagSet, mapping map[string]string) {
	for flagName, key := range mapping {
		viper.BindPFlag(key, fs.Lookup(flagName))
	}
}

// newLogger builds the process logger from the configured log level.
func newLogger() logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(viper.GetString("log-level"))
	return logging.NewLogger(cfg)
}

// initConfig reads the configuration file and wires environment overrides.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".stanza")
	}

	viper.SetEnvPrefix("STANZA")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults cover everything.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
