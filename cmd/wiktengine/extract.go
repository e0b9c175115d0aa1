// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/wiktengine/internal/pipeline"
	"github.com/pdiddy/wiktengine/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [titles...]",
	Short: "Run the full extraction pipeline over pages",
	Long: `Extract runs parse, expansion, field extraction, and schema
validation over the given titles (or every main-namespace page with
--all), writing accepted entries as JSON Lines to --out. A diagnostics
summary goes to stderr. Page-local failures never abort the run; only
a store failure does.`,
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg, err := extractConfig(cmd)
	if err != nil {
		return err
	}

	titles := args
	if all, _ := cmd.Flags().GetBool("all"); all {
		titles, err = store.MainTitles(context.Background())
		if err != nil {
			return err
		}
	}
	if len(titles) == 0 {
		return fmt.Errorf("page titles or --all required")
	}

	out, closeOut, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	p, err := pipeline.New(store, cfg, log)
	if err != nil {
		return err
	}
	summary, err := p.Run(context.Background(), titles, out)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d pages, %d entries emitted, %d rejected\n",
		summary.Pages, summary.Entries, summary.Rejected)
	for kind, n := range summary.DiagnosticCounts() {
		fmt.Fprintf(os.Stderr, "  %s: %d\n", kind, n)
	}
	return nil
}

// extractConfig assembles the pipeline config from defaults, the
// config file, an optional extraction-rules YAML file, and flags.
func extractConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.DefaultPipelineConfig()
	cfg.Store.DBPath = dbPath(cmd)

	if rulesPath, _ := cmd.Flags().GetString("rules"); rulesPath != "" {
		data, err := os.ReadFile(rulesPath)
		if err != nil {
			return cfg, fmt.Errorf("reading extraction rules: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Extraction); err != nil {
			return cfg, fmt.Errorf("parsing extraction rules %s: %w", rulesPath, err)
		}
	}

	if schemaPath, _ := cmd.Flags().GetString("schema"); schemaPath != "" {
		cfg.Validation.SchemaPath = schemaPath
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Workers = workers
	}
	return cfg, nil
}

// outputWriter opens the --out target, "-" meaning stdout.
func outputWriter(cmd *cobra.Command) (io.Writer, func(), error) {
	path, _ := cmd.Flags().GetString("out")
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func init() {
	extractCmd.Flags().Bool("all", false, "process every main-namespace page in the store")
	extractCmd.Flags().String("out", "-", "JSONL output path (- for stdout)")
	extractCmd.Flags().String("rules", "", "extraction rules YAML file (languages, POS headings, table rules)")
	extractCmd.Flags().String("schema", "", "external entry schema path (default: built-in schema)")
	extractCmd.Flags().Int("workers", 0, "concurrent page workers (0 = default)")

	rootCmd.AddCommand(extractCmd)
}
