// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Sense is one meaning of a word within a part-of-speech section.
// Per prd004-extraction R2.2.
type Sense struct {
	// Gloss is the cleaned definition text.
	Gloss string `json:"gloss" yaml:"gloss"`

	// Examples lists example sentences and quotations, in page order.
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`

	// Tags holds usage qualifiers attached to the gloss
	// (e.g. "colloquial", "transitive").
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Form is a single inflected form decomposed from a rendered table.
// Per prd004-extraction R3.3.
type Form struct {
	// Form is the surface string of the inflected form.
	Form string `json:"form" yaml:"form"`

	// Categories maps grammatical category to value
	// (e.g. "case" to "genitive", "number" to "plural").
	Categories map[string]string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// Source names the template or module whose expansion produced
	// this form, for provenance.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Sound is one pronunciation of the headword.
type Sound struct {
	// IPA is the transcription, including its enclosing slashes or
	// brackets as written on the page.
	IPA string `json:"ipa" yaml:"ipa"`
}

// Translation is an equivalent of the headword in another language,
// collected from a translations section.
type Translation struct {
	// Language is the target language name as written on the page.
	Language string `json:"language" yaml:"language"`

	// Code is the ISO-style code for Language, when the section
	// vocabulary knows it.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`

	// Word is the translated word.
	Word string `json:"word" yaml:"word"`
}

// Linkage is a cross-reference to another word, with the relation that
// linked them (synonym, antonym, related, derived, see-also).
type Linkage struct {
	// Relation is the linkage kind, lowercased ("synonyms", "antonyms", ...).
	Relation string `json:"relation" yaml:"relation"`

	// Word is the referenced word.
	Word string `json:"word" yaml:"word"`
}

// LexicalEntry is the structured record for one word in one language.
// Immutable after validator acceptance.
// Per prd004-extraction R1.1, prd005-validation R1.2.
type LexicalEntry struct {
	// Word is the headword, normally the page title.
	Word string `json:"word" yaml:"word"`

	// Language is the language section name as it appeared on the page
	// (e.g. "Finnish").
	Language string `json:"language" yaml:"language"`

	// LangCode is the ISO-style code for Language, when the section
	// vocabulary knows it.
	LangCode string `json:"lang_code,omitempty" yaml:"lang_code,omitempty"`

	// POS is the part-of-speech tag ("Verb", "Noun", ...).
	POS string `json:"pos" yaml:"pos"`

	// Senses lists the meanings in page order.
	Senses []Sense `json:"senses,omitempty" yaml:"senses,omitempty"`

	// Forms lists inflected forms decomposed from table templates.
	Forms []Form `json:"forms,omitempty" yaml:"forms,omitempty"`

	// Sounds lists pronunciations. A pronunciation section above the
	// first part-of-speech heading applies to every entry in its
	// language section.
	Sounds []Sound `json:"sounds,omitempty" yaml:"sounds,omitempty"`

	// Translations lists equivalents in other languages.
	Translations []Translation `json:"translations,omitempty" yaml:"translations,omitempty"`

	// Linkages lists cross-references collected from linkage sections.
	Linkages []Linkage `json:"linkages,omitempty" yaml:"linkages,omitempty"`

	// Extra preserves content from headings outside the configured
	// vocabulary, keyed by heading text, so nothing is silently dropped.
	Extra map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// ExtractionResult groups the entries and diagnostics produced from a
// single page.
type ExtractionResult struct {
	// PageTitle is the source page.
	PageTitle string `json:"page_title" yaml:"page_title"`

	// Entries lists the accepted lexical entries, in section order.
	Entries []LexicalEntry `json:"entries" yaml:"entries"`

	// Rejected counts entries dropped by schema validation.
	Rejected int `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}
