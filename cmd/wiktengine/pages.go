// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Inspect the page store",
	Long: `Pages exposes the SQLite page store populated by the dump loader:
namespace statistics and raw page lookup. Lookups apply the same title
normalization and redirect resolution the pipeline uses.`,
}

var pagesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print page counts by namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.GetStats(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("entries:   %d\n", stats.Main)
		fmt.Printf("templates: %d\n", stats.Templates)
		fmt.Printf("modules:   %d\n", stats.Modules)
		fmt.Printf("other:     %d\n", stats.Other)
		fmt.Printf("total:     %d\n", stats.Total())
		return nil
	},
}

var pagesGetCmd = &cobra.Command{
	Use:   "get <title>",
	Short: "Print a stored page's raw markup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		page, err := store.GetPage(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(page.Body)
		return nil
	},
}

func init() {
	pagesCmd.AddCommand(pagesStatsCmd)
	pagesCmd.AddCommand(pagesGetCmd)

	rootCmd.AddCommand(pagesCmd)
}
