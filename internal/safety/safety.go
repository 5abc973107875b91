// Package safety classifies SQL statements as safe or dangerous using the
// leading-keyword contract: a statement is dangerous when its first keyword
// (after stripping leading whitespace and comments) is a mutating or DDL
// keyword. It is deliberately not a SQL parser — parser-based reclassification
// would be a separate hardening layer on top of this contract.
package safety

import (
	"errors"
	"strings"
)

// Kind is the classification of a statement.
type Kind int

const (
	// KindSafe covers read-only statements: SELECT, SHOW, EXPLAIN, DESCRIBE, etc.
	KindSafe Kind = iota
	// KindDangerous covers statements capable of mutating data or schema.
	KindDangerous
)

func (k Kind) String() string {
	if k == KindDangerous {
		return "dangerous"
	}
	return "safe"
}

// Classification is the result of classifying a single statement.
// Keyword is the matched dangerous keyword, empty for safe statements.
type Classification struct {
	Kind    Kind
	Keyword string
}

var (
	// ErrEmpty is returned for empty or whitespace/comment-only statements.
	ErrEmpty = errors.New("safety: empty statement")
	// ErrMultiStatement is returned when the input contains more than one
	// statement. Stacked queries would undermine keyword classification.
	ErrMultiStatement = errors.New("safety: multi-statement input is not allowed")
)

// DefaultDangerousKeywords is the built-in keyword set. Extensible via
// NewClassifier's extra argument.
var DefaultDangerousKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE",
	"ALTER", "TRUNCATE", "REPLACE", "GRANT", "REVOKE",
}

// Policy is the process-wide safety policy, fixed at startup from
// configuration.
type Policy struct {
	AllowDangerous bool
}

// Permits reports whether a classified statement is allowed under the policy.
func (p Policy) Permits(cl Classification) bool {
	return cl.Kind == KindSafe || p.AllowDangerous
}

// Classifier decides whether a statement is safe or dangerous.
// Read-only after construction; safe for concurrent use.
type Classifier struct {
	dangerous map[string]struct{}
}

// NewClassifier creates a Classifier with the default keyword set plus any
// extra keywords (case-insensitive).
func NewClassifier(extra []string) *Classifier {
	dangerous := make(map[string]struct{}, len(DefaultDangerousKeywords)+len(extra))
	for _, kw := range DefaultDangerousKeywords {
		dangerous[kw] = struct{}{}
	}
	for _, kw := range extra {
		kw = strings.ToUpper(strings.TrimSpace(kw))
		if kw != "" {
			dangerous[kw] = struct{}{}
		}
	}
	return &Classifier{dangerous: dangerous}
}

// Classify inspects a raw statement and returns its classification.
// Returns ErrEmpty for empty/whitespace/comment-only input and
// ErrMultiStatement for stacked queries.
func (c *Classifier) Classify(stmt string) (Classification, error) {
	rest := stripLeading(stmt)
	if rest == "" {
		return Classification{}, ErrEmpty
	}
	if hasMultipleStatements(stmt) {
		return Classification{}, ErrMultiStatement
	}

	keyword := leadingKeyword(rest)
	if _, ok := c.dangerous[keyword]; ok {
		return Classification{Kind: KindDangerous, Keyword: keyword}, nil
	}
	return Classification{Kind: KindSafe}, nil
}

// CheckSingleStatement verifies the input holds at most one statement.
// Used for assembled mutation statements where the WHERE fragment is
// caller-supplied text.
func CheckSingleStatement(stmt string) error {
	if hasMultipleStatements(stmt) {
		return ErrMultiStatement
	}
	return nil
}

// stripLeading removes leading whitespace and SQL comments (both `--` and `#`
// line comments and `/* */` block comments) and returns the remainder.
func stripLeading(s string) string {
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			idx := strings.IndexByte(s, '\n')
			if idx < 0 {
				return ""
			}
			s = s[idx+1:]
		case strings.HasPrefix(s, "/*"):
			idx := strings.Index(s, "*/")
			if idx < 0 {
				return ""
			}
			s = s[idx+2:]
		default:
			return s
		}
	}
}

// leadingKeyword extracts the first keyword-shaped token, uppercased.
func leadingKeyword(s string) string {
	end := 0
	for end < len(s) {
		ch := s[end]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' {
			end++
			continue
		}
		break
	}
	return strings.ToUpper(s[:end])
}

// hasMultipleStatements scans for a statement separator outside of string
// literals, quoted identifiers, and comments. A trailing semicolon (possibly
// followed by whitespace or comments) does not count.
func hasMultipleStatements(s string) bool {
	i := 0
	n := len(s)
	for i < n {
		switch ch := s[i]; ch {
		case '\'', '"', '`':
			i = skipQuoted(s, i, ch)
		case '#':
			i = skipLineComment(s, i)
		case '-':
			if i+1 < n && s[i+1] == '-' {
				i = skipLineComment(s, i)
			} else {
				i++
			}
		case '/':
			if i+1 < n && s[i+1] == '*' {
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return false
				}
				i += 2 + end + 2
			} else {
				i++
			}
		case ';':
			// Anything substantive after the separator means a second statement.
			return stripLeading(s[i+1:]) != ""
		default:
			i++
		}
	}
	return false
}

// skipQuoted advances past a quoted region starting at i. Handles backslash
// escapes and doubled quote characters.
func skipQuoted(s string, i int, quote byte) int {
	i++ // opening quote
	n := len(s)
	for i < n {
		switch s[i] {
		case '\\':
			if quote != '`' {
				i += 2
				continue
			}
			i++
		case quote:
			if i+1 < n && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		default:
			i++
		}
	}
	return n
}

func skipLineComment(s string, i int) int {
	idx := strings.IndexByte(s[i:], '\n')
	if idx < 0 {
		return len(s)
	}
	return i + idx + 1
}
