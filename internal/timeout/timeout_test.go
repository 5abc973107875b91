package timeout

import (
	"testing"
	"time"
)

func TestMatchFirstRule(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "information_schema", Timeout: 5 * time.Second},
			{Pattern: "JOIN", Timeout: 60 * time.Second},
		},
	})

	got, pattern := m.Resolve("SELECT * FROM information_schema.tables")
	if got != 5*time.Second {
		t.Errorf("expected 5s, got %v", got)
	}
	if pattern != "information_schema" {
		t.Errorf("expected matched pattern %q, got %q", "information_schema", pattern)
	}
}

func TestStopOnFirstMatch(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "information_schema", Timeout: 5 * time.Second},
			{Pattern: "JOIN", Timeout: 60 * time.Second},
		},
	})

	got, _ := m.Resolve("SELECT * FROM information_schema.tables JOIN x JOIN y")
	if got != 5*time.Second {
		t.Errorf("expected 5s (first match wins), got %v", got)
	}
}

func TestDefaultTimeout(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules: []Rule{
			{Pattern: "information_schema", Timeout: 5 * time.Second},
		},
	})

	got, pattern := m.Resolve("SELECT 1")
	if got != 30*time.Second {
		t.Errorf("expected 30s (default), got %v", got)
	}
	if pattern != "" {
		t.Errorf("expected no matched pattern, got %q", pattern)
	}
}

func TestNoRules(t *testing.T) {
	t.Parallel()
	m := NewManager(Config{DefaultTimeout: 30 * time.Second})

	got, _ := m.Resolve("SELECT 1")
	if got != 30*time.Second {
		t.Errorf("expected 30s (default), got %v", got)
	}
}

func TestInvalidPatternPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid regex")
		}
	}()
	NewManager(Config{
		DefaultTimeout: 30 * time.Second,
		Rules:          []Rule{{Pattern: "([unclosed", Timeout: time.Second}},
	})
}
