package moderation

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed default_terms.txt
var defaultTerms string

// LoadTerms returns the censored term list. When path is empty the
// embedded default list is used; otherwise the file at path is read,
// one term per line, with blank lines and #-comments ignored.
func LoadTerms(path string) ([]string, error) {
	raw := defaultTerms
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading term list: %w", err)
		}
		raw = string(data)
	}

	var terms []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}

	if len(terms) == 0 {
		return nil, fmt.Errorf("term list %q contains no terms", path)
	}
	return terms, nil
}
