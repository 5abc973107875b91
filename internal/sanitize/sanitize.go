// Package sanitize applies regex-based redaction to query result values
// before they are handed back over the protocol.
package sanitize

import (
	"fmt"
	"regexp"
)

// Rule is a single pattern → replacement redaction rule.
type Rule struct {
	Pattern     string
	Replacement string
}

type compiledRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Sanitizer applies rules to string values in result rows, recursing into
// nested objects and arrays (JSON columns decode to those). Read-only after
// construction; safe for concurrent use.
type Sanitizer struct {
	rules []compiledRule
}

// NewSanitizer creates a Sanitizer. Panics on invalid regex patterns.
func NewSanitizer(rules []Rule) *Sanitizer {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			panic(fmt.Sprintf("sanitize: invalid regex pattern %q: %v", r.Pattern, err))
		}
		compiled[i] = compiledRule{pattern: re, replacement: r.Replacement}
	}
	return &Sanitizer{rules: compiled}
}

// HasRules reports whether any rules are configured.
func (s *Sanitizer) HasRules() bool {
	return len(s.rules) > 0
}

// Rows applies redaction to every field value, mutating rows in place and
// returning them for convenience.
func (s *Sanitizer) Rows(rows []map[string]any) []map[string]any {
	if len(s.rules) == 0 {
		return rows
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = s.value(v)
		}
	}
	return rows
}

func (s *Sanitizer) value(v any) any {
	switch val := v.(type) {
	case string:
		result := val
		for _, rule := range s.rules {
			result = rule.pattern.ReplaceAllString(result, rule.replacement)
		}
		return result
	case map[string]any:
		for k, item := range val {
			val[k] = s.value(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = s.value(item)
		}
		return val
	default:
		return v
	}
}
