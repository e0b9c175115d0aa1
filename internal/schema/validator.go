// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package schema gates extracted entries against a declared JSON
// Schema contract. Invalid entries are rejected with a field path and
// reason, never coerced. Per prd005-validation.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pdiddy/wiktengine/pkg/types"
)

// builtinSchema is the shipped entry contract. An external schema file
// supplied through ValidationConfig.SchemaPath replaces it wholesale.
const builtinSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "lexical-entry",
  "type": "object",
  "required": ["word", "language", "pos"],
  "anyOf": [
    {"required": ["senses"]},
    {"required": ["forms"]}
  ],
  "properties": {
    "word": {"type": "string", "minLength": 1},
    "language": {"type": "string", "minLength": 1},
    "lang_code": {"type": "string"},
    "pos": {"type": "string", "minLength": 1},
    "senses": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["gloss"],
        "properties": {
          "gloss": {"type": "string", "minLength": 1},
          "examples": {"type": "array", "items": {"type": "string"}},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "forms": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["form"],
        "properties": {
          "form": {"type": "string", "minLength": 1},
          "categories": {
            "type": "object",
            "additionalProperties": {"type": "string"}
          },
          "source": {"type": "string"}
        }
      }
    },
    "sounds": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["ipa"],
        "properties": {
          "ipa": {"type": "string", "minLength": 1}
        }
      }
    },
    "translations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["language", "word"],
        "properties": {
          "language": {"type": "string", "minLength": 1},
          "code": {"type": "string"},
          "word": {"type": "string", "minLength": 1}
        }
      }
    },
    "linkages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["relation", "word"],
        "properties": {
          "relation": {"type": "string"},
          "word": {"type": "string"}
        }
      }
    },
    "extra": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  }
}`

// ValidationError describes one schema violation.
type ValidationError struct {
	// Field is the JSON path of the offending field.
	Field string

	// Reason is the human-readable violation description.
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validator checks entries against one compiled schema.
type Validator struct {
	schema  *gojsonschema.Schema
	version string
}

// New compiles the validator from config: an external schema document
// when SchemaPath is set, the built-in contract otherwise.
func New(cfg types.ValidationConfig) (*Validator, error) {
	var loader gojsonschema.JSONLoader
	if cfg.SchemaPath != "" {
		loader = gojsonschema.NewReferenceLoader("file://" + cfg.SchemaPath)
	} else {
		loader = gojsonschema.NewStringLoader(builtinSchema)
	}
	compiled, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compiling entry schema: %w", err)
	}
	return &Validator{schema: compiled, version: cfg.SchemaVersion}, nil
}

// Version reports the configured schema version, recorded in emitted
// output for traceability.
func (v *Validator) Version() string {
	return v.version
}

// Validate checks one entry. A nil return means the entry is
// emittable; otherwise every violation is reported with its path.
func (v *Validator) Validate(entry *types.LexicalEntry) []ValidationError {
	doc, err := json.Marshal(entry)
	if err != nil {
		return []ValidationError{{Field: "(entry)", Reason: err.Error()}}
	}

	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []ValidationError{{Field: "(entry)", Reason: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:  re.Field(),
			Reason: re.Description(),
		})
	}
	return errs
}
