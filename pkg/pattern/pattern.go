// Package pattern matches URLs and hostnames against configured patterns.
//
// Pattern syntax:
//
//   - Exact (no prefix): case-insensitive equality, "fonts.googleapis.com"
//   - Wildcard (*): case-insensitive, * matches any run of characters, "*doubleclick.net*"
//   - Regexp (~): case-sensitive regular expression, "~^https://cdn[0-9]\.example\.com/"
//   - Regexp (~*): case-insensitive regular expression, "~*intercom|drift"
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

type Kind int

const (
	KindWildcard Kind = iota
	KindRegexp
	KindExact
)

// Pattern is a compiled pattern.
type Pattern struct {
	Original string
	Kind     Kind

	body string
	re   *regexp.Regexp
}

// Classify splits a raw pattern into its kind and body.
func Classify(raw string) (Kind, string, bool) {
	switch {
	case strings.HasPrefix(raw, "~*"):
		return KindRegexp, raw[2:], true
	case strings.HasPrefix(raw, "~"):
		return KindRegexp, raw[1:], false
	case strings.Contains(raw, "*"):
		return KindWildcard, raw, false
	default:
		return KindExact, raw, false
	}
}

// Compile validates raw and prepares it for matching.
func Compile(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}

	kind, body, fold := Classify(raw)
	p := &Pattern{Original: raw, Kind: kind, body: body}

	if kind == KindRegexp {
		expr := body
		if fold {
			expr = "(?i)" + body
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern '%s': %w", raw, err)
		}
		p.re = re
	} else {
		p.body = strings.ToLower(body)
	}

	return p, nil
}

// Match reports whether input matches p. A nil pattern matches nothing.
func (p *Pattern) Match(input string) bool {
	if p == nil {
		return false
	}
	switch p.Kind {
	case KindRegexp:
		return p.re != nil && p.re.MatchString(input)
	case KindWildcard:
		return MatchWildcard(strings.ToLower(input), p.body)
	case KindExact:
		return strings.ToLower(input) == p.body
	}
	return false
}

// List is an ordered set of compiled patterns.
type List []*Pattern

// CompileList compiles every entry, failing on the first bad one.
func CompileList(raws []string) (List, error) {
	list := make(List, 0, len(raws))
	for _, raw := range raws {
		p, err := Compile(raw)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// MatchAny returns the first pattern matching input, or nil.
func (l List) MatchAny(input string) *Pattern {
	for _, p := range l {
		if p.Match(input) {
			return p
		}
	}
	return nil
}

// MatchWildcard matches text against a pattern where * spans any characters,
// including none and including path separators.
func MatchWildcard(text, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return text == pattern
	}

	parts := strings.Split(pattern, "*")
	first, last := parts[0], parts[len(parts)-1]

	if !strings.HasPrefix(text, first) {
		return false
	}
	text = text[len(first):]

	if !strings.HasSuffix(text, last) {
		return false
	}
	text = text[:len(text)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(text, part)
		if idx < 0 {
			return false
		}
		text = text[idx+len(part):]
	}
	return true
}
