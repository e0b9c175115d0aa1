// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wiktengine/internal/wikitext"
	"github.com/pdiddy/wiktengine/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse [title]",
	Short: "Parse a page into its node tree",
	Long: `Parse reads a page from the store (or a local file with --file),
parses its wiki markup, and prints a node tree on stdout. Parse
diagnostics go to stderr; malformed markup decays to literal text
rather than failing, unless --strict is set.`,
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	body, label, err := pageBody(cmd, args)
	if err != nil {
		return err
	}

	strict, _ := cmd.Flags().GetBool("strict")
	maxNesting, _ := cmd.Flags().GetInt("max-nesting")

	root, diags, err := wikitext.Parse(body, types.ParserConfig{
		MaxNesting: maxNesting,
		Strict:     strict,
	})
	if err != nil {
		return fmt.Errorf("parsing %s: %w", label, err)
	}

	fmt.Print(wikitext.Dump(root))
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
	return nil
}

// pageBody loads markup from --file or from the store.
func pageBody(cmd *cobra.Command, args []string) (body, label string, err error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", "", err
		}
		return string(data), file, nil
	}

	if len(args) == 0 {
		return "", "", fmt.Errorf("a page title or --file is required")
	}
	store, err := openStore(cmd)
	if err != nil {
		return "", "", err
	}
	defer store.Close()

	page, err := store.GetPage(context.Background(), args[0])
	if err != nil {
		return "", "", err
	}
	return page.Body, page.Title, nil
}

func init() {
	parseCmd.Flags().String("file", "", "parse a local file instead of a stored page")
	parseCmd.Flags().Bool("strict", false, "treat the first parse diagnostic as a hard error")
	parseCmd.Flags().Int("max-nesting", 0, "nesting depth limit (0 = default)")

	rootCmd.AddCommand(parseCmd)
}
