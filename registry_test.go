package mymcp

import (
	"context"
	"encoding/json"
	"testing"
)

func nopHandler(ctx context.Context, args json.RawMessage) (any, error) {
	return nil, nil
}

func TestRegistryPreservesOrder(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(Tool{Name: "c"}, nopHandler)
	reg.Register(Tool{Name: "a"}, nopHandler)
	reg.Register(Tool{Name: "b"}, nopHandler)

	tools := reg.List()
	if len(tools) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(tools))
	}
	if tools[0].Name != "c" || tools[1].Name != "a" || tools[2].Name != "b" {
		t.Errorf("registration order not preserved: %v", tools)
	}
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(Tool{Name: "query"}, nopHandler)

	if _, ok := reg.Resolve("query"); !ok {
		t.Error("expected to resolve registered tool")
	}
	if _, ok := reg.Resolve("missing"); ok {
		t.Error("expected unknown tool to not resolve")
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(Tool{Name: "query"}, nopHandler)

	expectPanic(t, func() { reg.Register(Tool{Name: "query"}, nopHandler) })
}

func TestRegistryInvalidRegistrationPanics(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()

	expectPanic(t, func() { reg.Register(Tool{Name: ""}, nopHandler) })
	expectPanic(t, func() { reg.Register(Tool{Name: "x"}, nil) })
}

func TestRegistryListIsACopy(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	reg.Register(Tool{Name: "query", Description: "original"}, nopHandler)

	tools := reg.List()
	tools[0].Description = "mutated"

	if reg.List()[0].Description != "original" {
		t.Error("List must return a copy of the descriptors")
	}
}
