package chat

import "fmt"

// Matcher is the profanity-matching collaborator. Its matching
// semantics (case handling, leet normalization, list content) are owned
// by the implementation, not by the policy.
type Matcher interface {
	ContainsProfanity(text string) bool
	Censor(text string) string
}

// Policy maps (content, censorship level) to the content that may be
// persisted, or rejects it. Pure decision logic; no I/O.
type Policy struct {
	matcher Matcher
}

// NewPolicy creates a Policy backed by the given matcher.
func NewPolicy(matcher Matcher) *Policy {
	return &Policy{matcher: matcher}
}

// Apply evaluates content under the session's censorship level.
//
//   - low: content returned unchanged.
//   - medium: profane spans masked in place; never rejects.
//   - high: ErrOffensiveContent when any profanity is present, else
//     content returned unchanged.
func (p *Policy) Apply(content string, level CensorshipLevel) (string, error) {
	switch level {
	case LevelLow:
		return content, nil
	case LevelMedium:
		return p.matcher.Censor(content), nil
	case LevelHigh:
		if p.matcher.ContainsProfanity(content) {
			return "", ErrOffensiveContent
		}
		return content, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
}
