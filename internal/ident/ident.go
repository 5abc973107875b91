// Package ident validates and quotes MySQL identifiers used in statements
// assembled by the structured mutation tools. Values never travel through
// this package — they are always bound as placeholders.
package ident

import "fmt"

// Valid reports whether name is a plain identifier: ASCII letters, digits,
// and underscores only. Intentionally stricter than what MySQL permits with
// backtick quoting — exotic identifiers are not worth the injection surface.
func Valid(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_':
		default:
			return false
		}
	}
	return true
}

// Quote wraps a validated identifier in backticks.
func Quote(name string) string {
	return "`" + name + "`"
}

// Check returns a descriptive error for invalid identifiers.
func Check(kind, name string) error {
	if !Valid(name) {
		return fmt.Errorf("invalid %s name %q: only letters, digits, and underscores are allowed", kind, name)
	}
	return nil
}
