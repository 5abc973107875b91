// Package errprompt matches database error messages against configured
// patterns and returns guidance text to append for the calling agent.
package errprompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule maps an error-message pattern to a guidance message.
type Rule struct {
	Pattern string
	Message string
}

type compiledRule struct {
	pattern *regexp.Regexp
	message string
}

// Matcher evaluates error messages against rules. Read-only after
// construction; safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher creates a Matcher. Panics on invalid regex patterns.
func NewMatcher(rules []Rule) *Matcher {
	compiled := make([]compiledRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			panic(fmt.Sprintf("errprompt: invalid regex pattern %q: %v", r.Pattern, err))
		}
		compiled[i] = compiledRule{pattern: re, message: r.Message}
	}
	return &Matcher{rules: compiled}
}

// Match evaluates errMsg against all rules, top to bottom, and returns the
// matching guidance messages joined with newlines. Empty string when nothing
// matched.
func (m *Matcher) Match(errMsg string) string {
	var matches []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			matches = append(matches, rule.message)
		}
	}
	return strings.Join(matches, "\n")
}

// MatchedPatterns returns the patterns that matched errMsg, for logging.
func (m *Matcher) MatchedPatterns(errMsg string) []string {
	var patterns []string
	for _, rule := range m.rules {
		if rule.pattern.MatchString(errMsg) {
			patterns = append(patterns, rule.pattern.String())
		}
	}
	return patterns
}
