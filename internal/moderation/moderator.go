// Package moderation provides profanity detection and masking for chat
// content.
//
// Matching runs over a normalized view of the text: leet-speak
// substitutions are reversed (0 -> o, $ -> s, ...) and punctuation,
// whitespace and symbols are ignored, so "f.u-c k" still matches "fuck".
// The original text is never altered except for the masked spans.
package moderation

import (
	"fmt"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator matches censored terms using an Aho-Corasick automaton built
// once at startup. Safe for concurrent use after construction.
type Moderator struct {
	matcher  *goahocorasick.Machine
	maskChar rune
}

// textMapping pairs the normalized runes with the index each one came
// from in the original string.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// New builds a Moderator from a list of censored terms. Terms are
// normalized the same way input text is, so the list can contain plain
// spellings only.
func New(terms []string, maskChar rune) (*Moderator, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty censored term list")
	}

	patterns := make([][]rune, len(terms))
	for i, term := range terms {
		patterns[i] = normalizeRunes([]rune(term))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("building term automaton: %w", err)
	}

	return &Moderator{matcher: m, maskChar: maskChar}, nil
}

// ContainsProfanity reports whether the text contains any censored term.
func (m *Moderator) ContainsProfanity(text string) bool {
	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return false
	}
	// returnImmediately: any single hit answers the question
	return len(m.matcher.MultiPatternSearch(mapping.normalized, true)) > 0
}

// Censor replaces every matched span in the text with the mask
// character, preserving length and the position of untouched runes.
// Already-censored text passes through unchanged.
func (m *Moderator) Censor(text string) string {
	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return text
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return text
	}

	origRunes := []rune(text)
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		// Mask the original span from the first to the last matched
		// rune, covering any noise characters in between.
		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.maskChar
		}
	}

	return string(origRunes)
}

// normalize builds the searchable view of the input and records where
// each kept rune sits in the original string.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}

	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet-speak characters back to their standard
// alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
