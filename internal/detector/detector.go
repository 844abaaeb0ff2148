// Package detector identifies the natural language of document text. The
// gates tell the model which language to write in, and rewrites are checked
// against the language of the block they replace.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
)

// DefaultLanguages are the languages a content detector distinguishes
// between when none are given.
var DefaultLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
	lingua.Ukrainian,
	lingua.Russian,
	lingua.Swedish,
	lingua.Turkish,
}

// Detector is expensive to build and safe for concurrent use; share one.
type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to langs, or DefaultLanguages if none.
func New(langs ...lingua.Language) *Detector {
	if len(langs) < 2 {
		langs = DefaultLanguages
	}
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if strings.TrimSpace(text) == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code ("EN").
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// DetectName returns the English name of the language ("German"), or
// fallback when the language cannot be determined.
func (d *Detector) DetectName(text, fallback string) string {
	lang, ok := d.Detect(text)
	if !ok {
		return fallback
	}
	return lang.String()
}
