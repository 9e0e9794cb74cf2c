package skills

import (
	"fmt"
	"regexp"
)

// A word boundary is any rune that is not a letter, digit or underscore, or the
// edge of the text. RE2 has no lookaround and its \b is ASCII-only, so the
// boundary is matched as a non-capturing group instead.
const (
	boundaryBefore = `(?:^|[^\p{L}\p{N}_])`
	boundaryAfter  = `(?:[^\p{L}\p{N}_]|$)`
)

// WordPattern compiles a case-insensitive whole-word pattern for term. The term
// is escaped, so catalog data cannot inject pattern syntax.
func WordPattern(term string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`(?i)` + boundaryBefore + regexp.QuoteMeta(term) + boundaryAfter)
	if err != nil {
		return nil, fmt.Errorf("compile pattern for %q: %w", term, err)
	}
	return re, nil
}
