// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ParserConfig holds settings for the wikitext parser.
// Per prd002-parsing R5.1-R5.3.
type ParserConfig struct {
	// MaxNesting bounds template/link nesting depth during parsing
	// (default 40). Deeper structures decay to literal text with a
	// parse diagnostic.
	MaxNesting int `json:"max_nesting" yaml:"max_nesting"`

	// Strict turns the first parse diagnostic into a hard error
	// instead of tolerant recovery (default false).
	Strict bool `json:"strict" yaml:"strict"`
}

// ExpansionConfig holds settings for the macro expansion engine.
// Per prd003-expansion R2.1-R2.4.
type ExpansionConfig struct {
	// MaxDepth is the ceiling on nested expansion depth (default 40).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// MaxExpansions is the ceiling on total expansions per page
	// (default 10000).
	MaxExpansions int `json:"max_expansions" yaml:"max_expansions"`

	// MaxRedirects bounds redirect hops during resolution (default 3).
	MaxRedirects int `json:"max_redirects" yaml:"max_redirects"`
}

// SandboxConfig holds settings for the Lua execution sandbox.
// Per prd003-expansion R4.2: budgets are generous but finite.
type SandboxConfig struct {
	// Timeout is the wall-clock budget for one module invocation
	// (default 2s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// CallStackSize bounds the Lua call stack (default 120).
	CallStackSize int `json:"call_stack_size" yaml:"call_stack_size"`

	// RegistrySize is the initial Lua registry size (default 2048).
	RegistrySize int `json:"registry_size" yaml:"registry_size"`
}

// TableRule maps one inflection-table template's rendered cells onto
// grammatical categories. Supplied as configuration, not hard-coded
// per word. Per prd004-extraction R3.2.
type TableRule struct {
	// Template is the normalized template name the rule applies to.
	Template string `json:"template" yaml:"template"`

	// Columns maps 0-based column index to "category=value" pairs
	// applied to every form in that column.
	Columns map[int]string `json:"columns,omitempty" yaml:"columns,omitempty"`

	// Rows maps 0-based row index to "category=value" pairs applied to
	// every form in that row.
	Rows map[int]string `json:"rows,omitempty" yaml:"rows,omitempty"`

	// Labels maps inline labels ("form", "past", ...) to
	// "category=value" pairs for templates that render label: value
	// lines instead of tables.
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// ExtractionConfig holds the data-driven extraction rules.
// Heterogeneous per-language conventions live here rather than in code.
// Per prd004-extraction R4.1-R4.4.
type ExtractionConfig struct {
	// Languages maps language section headings to language codes.
	// Empty means use the built-in default vocabulary.
	Languages map[string]string `json:"languages,omitempty" yaml:"languages,omitempty"`

	// POSHeadings lists recognized part-of-speech heading texts.
	// Empty means use the built-in default vocabulary.
	POSHeadings []string `json:"pos_headings,omitempty" yaml:"pos_headings,omitempty"`

	// LinkageHeadings lists recognized cross-reference section
	// headings. Empty means use the built-in default set.
	LinkageHeadings []string `json:"linkage_headings,omitempty" yaml:"linkage_headings,omitempty"`

	// PronunciationHeadings lists recognized pronunciation section
	// headings. Empty means use the built-in default set.
	PronunciationHeadings []string `json:"pronunciation_headings,omitempty" yaml:"pronunciation_headings,omitempty"`

	// TranslationHeadings lists recognized translation section
	// headings. Empty means use the built-in default set.
	TranslationHeadings []string `json:"translation_headings,omitempty" yaml:"translation_headings,omitempty"`

	// TableRules maps template name to its cell decomposition rule.
	TableRules map[string]TableRule `json:"table_rules,omitempty" yaml:"table_rules,omitempty"`

	// PanelTemplates lists templates whose output is presentation-only
	// and excluded from extraction (navigation boxes, floating tables).
	PanelTemplates []string `json:"panel_templates,omitempty" yaml:"panel_templates,omitempty"`
}

// ValidationConfig holds settings for the schema gate.
// Per prd005-validation R2.1.
type ValidationConfig struct {
	// SchemaPath points at an external JSON Schema document. Empty
	// means use the built-in schema.
	SchemaPath string `json:"schema_path,omitempty" yaml:"schema_path,omitempty"`

	// SchemaVersion is recorded in emitted output for traceability.
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
}

// StoreConfig holds settings for the SQLite page store.
type StoreConfig struct {
	// DBPath is the path to the page database file.
	DBPath string `json:"db_path" yaml:"db_path"`
}

// PipelineConfig groups all stage configurations plus worker settings.
type PipelineConfig struct {
	Store      StoreConfig      `json:"store" yaml:"store"`
	Parser     ParserConfig     `json:"parser" yaml:"parser"`
	Expansion  ExpansionConfig  `json:"expansion" yaml:"expansion"`
	Sandbox    SandboxConfig    `json:"sandbox" yaml:"sandbox"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction"`
	Validation ValidationConfig `json:"validation" yaml:"validation"`

	// Workers is the number of concurrent page workers (default 4).
	// Each worker owns a private engine and sandbox.
	Workers int `json:"workers" yaml:"workers"`

	// OutDir is the directory JSONL entry files are written to.
	OutDir string `json:"out_dir" yaml:"out_dir"`
}

// DefaultPipelineConfig returns a config with all defaults applied.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Store:  StoreConfig{DBPath: "pages.db"},
		Parser: ParserConfig{MaxNesting: 40},
		Expansion: ExpansionConfig{
			MaxDepth:      40,
			MaxExpansions: 10000,
			MaxRedirects:  3,
		},
		Sandbox: SandboxConfig{
			Timeout:       2 * time.Second,
			CallStackSize: 120,
			RegistrySize:  2048,
		},
		Validation: ValidationConfig{SchemaVersion: "1"},
		Workers:    4,
		OutDir:     "entries",
	}
}
