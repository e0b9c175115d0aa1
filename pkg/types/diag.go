// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// DiagnosticKind classifies a non-fatal, page-local failure.
// Per prd006-pipeline R4.1; the taxonomy mirrors the error handling
// design: parse recovery, resolution misses, expansion cycles, sandbox
// budget violations and faults, and schema rejections.
type DiagnosticKind string

const (
	DiagParse          DiagnosticKind = "parse"
	DiagResolutionMiss DiagnosticKind = "resolution-miss"
	DiagExpansionCycle DiagnosticKind = "expansion-cycle"
	DiagDepthExceeded  DiagnosticKind = "depth-exceeded"
	DiagBudgetExceeded DiagnosticKind = "budget-exceeded"
	DiagSandboxTimeout DiagnosticKind = "sandbox-timeout"
	DiagSandboxFault   DiagnosticKind = "sandbox-fault"
	DiagValidation     DiagnosticKind = "validation"
)

// Diagnostic records one non-fatal issue with enough context for
// offline triage. None are silently swallowed; the pipeline collector
// receives every one.
type Diagnostic struct {
	// Kind classifies the failure.
	Kind DiagnosticKind `json:"kind" yaml:"kind"`

	// Page is the title of the page being processed.
	Page string `json:"page" yaml:"page"`

	// Path locates the offending node ("section Finnish > list item 3")
	// or byte offset for parse diagnostics.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message" yaml:"message"`

	// Stack is the active template/module invocation stack at the time
	// of the failure, outermost first.
	Stack []string `json:"stack,omitempty" yaml:"stack,omitempty"`
}

// String renders the diagnostic in one line for progress output.
func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("%s %s (%s): %s", d.Kind, d.Page, d.Path, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Page, d.Message)
}
