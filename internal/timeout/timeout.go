// Package timeout resolves per-statement execution timeouts from
// pattern-based rules with a default fallback.
package timeout

import (
	"fmt"
	"regexp"
	"time"
)

// Rule maps a statement pattern to a timeout.
type Rule struct {
	Pattern string
	Timeout time.Duration
}

// Config is the manager's construction config.
type Config struct {
	DefaultTimeout time.Duration
	Rules          []Rule
}

type compiledRule struct {
	pattern *regexp.Regexp
	timeout time.Duration
}

// Manager resolves statement timeouts. Read-only after construction; safe
// for concurrent use.
type Manager struct {
	rules          []compiledRule
	defaultTimeout time.Duration
}

// NewManager creates a Manager. Panics on invalid regex patterns.
func NewManager(config Config) *Manager {
	compiled := make([]compiledRule, len(config.Rules))
	for i, r := range config.Rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			panic(fmt.Sprintf("timeout: invalid regex pattern %q: %v", r.Pattern, err))
		}
		compiled[i] = compiledRule{pattern: re, timeout: r.Timeout}
	}
	return &Manager{rules: compiled, defaultTimeout: config.DefaultTimeout}
}

// Resolve returns the timeout for the given statement and the pattern of the
// rule that matched (empty when the default applied). First match wins.
func (m *Manager) Resolve(stmt string) (time.Duration, string) {
	for _, rule := range m.rules {
		if rule.pattern.MatchString(stmt) {
			return rule.timeout, rule.pattern.String()
		}
	}
	return m.defaultTimeout, ""
}
