// Package syntax classifies candidate field values with local rules only.
// Every function here is pure: the same input always yields the same verdict.
package syntax

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"formcheck/internal/fieldcheck/models"
)

// emailPattern is the anchored email shape: a local part made of unescaped
// runs or a quoted string, "@", then a bracketed dotted quad or a dotted
// hostname ending in a label of two or more letters.
var emailPattern = regexp.MustCompile(
	`^(([^<>()\[\]\\.,;:\s@"]+(\.[^<>()\[\]\\.,;:\s@"]+)*)|(".+"))@` +
		`((\[[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\])|(([a-zA-Z\-0-9]+\.)+[a-zA-Z]{2,}))$`,
)

// Classify returns StateEmpty, StateTooShort, StateInvalidChars or
// StateSyntaxOK for value. Rules are applied in that order and the first
// match wins. Lengths are counted in code points.
func Classify(kind models.FieldKind, value string, minLen, maxLen int) models.ValidationState {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		return models.StateEmpty
	case n < minLen:
		return models.StateTooShort
	case n > maxLen:
		return models.StateInvalidChars
	}

	if kind == models.KindEmail {
		if !IsEmail(value) {
			return models.StateInvalidChars
		}
		return models.StateSyntaxOK
	}
	if HasForbiddenChars(value) {
		return models.StateInvalidChars
	}
	return models.StateSyntaxOK
}

// ClassifyField applies Classify with the bounds from cfg.
func ClassifyField(cfg models.FieldConfig, value string) models.ValidationState {
	return Classify(cfg.Kind, value, cfg.MinLength, cfg.MaxLength)
}

// HasForbiddenChars reports whether an identifier contains whitespace or "@".
func HasForbiddenChars(value string) bool {
	return strings.ContainsFunc(value, func(r rune) bool {
		return r == '@' || unicode.IsSpace(r)
	})
}

// IsEmail reports whether value has the accepted email shape.
func IsEmail(value string) bool {
	return emailPattern.MatchString(value)
}
