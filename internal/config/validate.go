package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by every configuration failure.
var ErrInvalid = errors.New("invalid configuration")

// Error lists every problem found in a Config.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(e.Problems, "; "))
}

func (e *Error) Unwrap() error { return ErrInvalid }

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks c before a run starts. Every stage must have a model and
// every threshold must be in range.
func (c Config) Validate() error {
	var problems []string

	if err := structValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	for _, s := range Stages {
		if strings.TrimSpace(c.Models[s]) == "" {
			problems = append(problems, fmt.Sprintf("models.%s: no model mapped", s))
		}
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s: failed %s (got %v)", field, fe.Tag(), fe.Value())
}

// UncatalogedModels returns the stages whose model is not in Catalog, keyed
// by stage. OpenRouter accepts ids outside the catalog, so callers warn
// rather than reject.
func (c Config) UncatalogedModels() map[Stage]string {
	out := make(map[Stage]string)
	for _, s := range Stages {
		if m := c.Models[s]; m != "" && !slices.Contains(Catalog, m) {
			out[s] = m
		}
	}
	return out
}
