// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the wiktengine CLI.
// Implements: prd001-pagestore, prd002-parsing, prd003-expansion,
//             prd004-extraction, prd005-validation, prd006-pipeline
//             (CLI surface).
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/wiktengine/internal/pagestore"
	"github.com/pdiddy/wiktengine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// log is the process-wide logger, configured from the environment
// before any command runs.
var log zerolog.Logger

// rootCmd is the base command for the wiktengine CLI.
var rootCmd = &cobra.Command{
	Use:   "wiktengine",
	Short: "Structured lexical extraction from wiki-markup page dumps",
	Long: `wiktengine converts raw wiki-markup pages into structured lexical
entries: it parses the markup, expands templates and Lua modules, walks
language and part-of-speech sections, and validates each extracted
entry against a declared schema before emission.

Each pipeline stage is reachable as a subcommand: parse, expand,
extract, and pages for store inspection.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = newLogger()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./wiktengine.yaml or ~/.config/wiktengine/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "page database path (default: pages.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("wiktengine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "wiktengine"))
		}
	}

	viper.SetEnvPrefix("WIKTENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if os.Getenv("LOG_FORMAT") == "json" {
		w = os.Stderr
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// dbPath resolves the page database path: flag, then config file, then
// default.
func dbPath(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		return path
	}
	if path := viper.GetString("store.db_path"); path != "" {
		return path
	}
	return types.DefaultPipelineConfig().Store.DBPath
}

func openStore(cmd *cobra.Command) (*pagestore.Store, error) {
	return pagestore.Open(types.StoreConfig{DBPath: dbPath(cmd)})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
