// Package resolver derives the normalized team, player and game entities from
// the raw event table.
package resolver

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrAbbreviationSpaceExhausted means every perturbation of a base
// abbreviation is already taken.
var ErrAbbreviationSpaceExhausted = errors.New("no free team abbreviation")

const (
	abbreviationLength = 3
	abbreviationPad    = 'X'
	// 9 digit perturbations followed by 26 letter perturbations.
	maxAbbreviationAttempts = 9 + 26
)

// BaseAbbreviation is the unperturbed code for a team name: the first three
// letters of the last "-" segment, uppercased and padded with X.
func BaseAbbreviation(name string) string {
	segments := strings.Split(name, "-")
	last := strings.TrimSpace(segments[len(segments)-1])

	letters := make([]rune, 0, abbreviationLength)
	for _, r := range last {
		if !unicode.IsLetter(r) {
			continue
		}
		letters = append(letters, unicode.ToUpper(r))
		if len(letters) == abbreviationLength {
			break
		}
	}
	for len(letters) < abbreviationLength {
		letters = append(letters, abbreviationPad)
	}
	return string(letters)
}

// AssignAbbreviations gives every name a unique three-character code. Names
// are processed in the order given, so callers that need reproducible output
// must pass a stable order. Duplicate names share one code.
func AssignAbbreviations(names []string) (map[string]string, error) {
	assigned := make(map[string]string, len(names))
	taken := make(map[string]bool, len(names))

	for _, name := range names {
		if _, ok := assigned[name]; ok {
			continue
		}
		code, err := freeAbbreviation(BaseAbbreviation(name), taken)
		if err != nil {
			return nil, fmt.Errorf("team %q: %w", name, err)
		}
		assigned[name] = code
		taken[code] = true
	}
	return assigned, nil
}

// freeAbbreviation perturbs the last character of base with 1-9 and then
// A-Z until it finds a code not in taken.
func freeAbbreviation(base string, taken map[string]bool) (string, error) {
	if !taken[base] {
		return base, nil
	}
	prefix := []rune(base)[:abbreviationLength-1]
	for counter := 1; counter <= maxAbbreviationAttempts; counter++ {
		candidate := string(prefix) + string(perturbation(counter))
		if !taken[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: base %s", ErrAbbreviationSpaceExhausted, base)
}

func perturbation(counter int) rune {
	if counter <= 9 {
		return rune('0' + counter)
	}
	return rune('A' + (counter-10)%26)
}
