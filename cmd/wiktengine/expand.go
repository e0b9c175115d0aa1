// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wiktengine/internal/expand"
	"github.com/pdiddy/wiktengine/internal/luasandbox"
	"github.com/pdiddy/wiktengine/internal/wikitext"
	"github.com/pdiddy/wiktengine/pkg/types"
)

var expandCmd = &cobra.Command{
	Use:   "expand <title>",
	Short: "Fully expand a page's templates and modules",
	Long: `Expand loads a page, recursively expands every template invocation
and Lua module call, and prints the resulting wikitext on stdout.
Missing templates stay as literal calls; cycles, depth overruns, and
sandbox failures are reported as diagnostics on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	defaults := types.DefaultPipelineConfig()
	expCfg := defaults.Expansion
	if maxDepth > 0 {
		expCfg.MaxDepth = maxDepth
	}
	sbCfg := defaults.Sandbox
	if timeout > 0 {
		sbCfg.Timeout = timeout
	}

	sandbox := luasandbox.New(sbCfg, log)
	engine := expand.New(store, sandbox, expCfg, defaults.Parser, log)
	sandbox.SetPreprocessor(func(ctx context.Context, title, src string) (string, error) {
		expanded, _, err := engine.ExpandFragment(ctx, title, src)
		return expanded, err
	})

	page, err := store.GetPage(context.Background(), args[0])
	if err != nil {
		return err
	}

	root, diags, err := engine.ExpandPage(context.Background(), page)
	if err != nil {
		return err
	}

	fmt.Print(wikitext.RenderWikitext(root.Children))
	for _, d := range diags {
		fmt.Fprintln(os.Stderr, d.String())
	}
	return nil
}

func init() {
	expandCmd.Flags().Int("max-depth", 0, "expansion depth ceiling (0 = default)")
	expandCmd.Flags().Duration("timeout", 0*time.Second, "sandbox wall-clock budget per invocation (0 = default)")

	rootCmd.AddCommand(expandCmd)
}
