// Package validator checks that a rewritten block is usable in place of the
// original: non-empty and still written in the original's language.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/contentgate/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

var (
	ErrEmptyRewrite    = errors.New("rewrite is empty")
	ErrLanguageChanged = errors.New("rewrite changed language")
)

// Validator checks rewrites. A nil detector disables the language check.
type Validator struct {
	det *detector.Detector
}

func New(det *detector.Detector) *Validator {
	return &Validator{det: det}
}

// Check returns nil when rewritten may replace original.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined skip the language comparison.
func (v *Validator) Check(original, rewritten string) error {
	text := strings.TrimSpace(rewritten)
	if text == "" {
		return ErrEmptyRewrite
	}

	if v == nil || v.det == nil {
		return nil
	}

	src := strings.TrimSpace(original)
	if len([]rune(text)) < minValidationLength || len([]rune(src)) < minValidationLength {
		return nil
	}

	want, ok := v.det.DetectISO(src)
	if !ok {
		return nil
	}
	got, ok := v.det.DetectISO(text)
	if !ok {
		return nil
	}

	if !strings.EqualFold(want, got) {
		return fmt.Errorf("%w: expected %s but detected %s", ErrLanguageChanged, want, got)
	}
	return nil
}
