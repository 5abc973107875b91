package mymcp

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

// testDSN never gets dialed in unit tests: the database handle is lazy and
// every unit-test path fails before a connection is needed.
const testDSN = "tester:secret@tcp(127.0.0.1:3306)/testdb"

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic, got none")
		}
	}()
	fn()
}

// newTestEngine builds an engine that is fully usable for every pre-lease
// code path without a running database.
func newTestEngine(t *testing.T, config Config) *MySQLMcp {
	t.Helper()
	engine, err := New(testDSN, config, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { engine.Close(context.Background()) })
	return engine
}
