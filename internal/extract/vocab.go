// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

// Built-in vocabularies used when the extraction config leaves the
// corresponding field empty. Site-specific deployments override them
// wholesale through ExtractionConfig.

// defaultLanguages maps language section headings to language codes.
var defaultLanguages = map[string]string{
	"English":    "en",
	"Finnish":    "fi",
	"French":     "fr",
	"German":     "de",
	"Spanish":    "es",
	"Italian":    "it",
	"Portuguese": "pt",
	"Swedish":    "sv",
	"Estonian":   "et",
	"Hungarian":  "hu",
	"Russian":    "ru",
	"Latin":      "la",
	"Greek":      "el",
	"Japanese":   "ja",
	"Chinese":    "zh",
	"Korean":     "ko",
}

// defaultPOSHeadings lists the recognized part-of-speech headings.
var defaultPOSHeadings = []string{
	"Noun",
	"Proper noun",
	"Verb",
	"Adjective",
	"Adverb",
	"Pronoun",
	"Preposition",
	"Postposition",
	"Conjunction",
	"Interjection",
	"Numeral",
	"Particle",
	"Participle",
	"Determiner",
	"Prefix",
	"Suffix",
	"Infix",
	"Contraction",
	"Abbreviation",
	"Phrase",
	"Proverb",
}

// defaultPronunciationHeadings lists pronunciation section headings.
var defaultPronunciationHeadings = []string{
	"Pronunciation",
}

// defaultTranslationHeadings lists translation section headings.
var defaultTranslationHeadings = []string{
	"Translations",
}

// defaultLinkageHeadings lists cross-reference section headings and is
// keyed by the relation they record.
var defaultLinkageHeadings = []string{
	"Synonyms",
	"Antonyms",
	"Hypernyms",
	"Hyponyms",
	"Coordinate terms",
	"Related terms",
	"Derived terms",
	"See also",
}
