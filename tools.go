package mymcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// RegisterTools wires the five database tools into reg. Descriptions adapt
// to the safety policy so agents know up front whether mutations will be
// accepted.
func RegisterTools(reg *Registry, engine *MySQLMcp) {
	allowDangerous := engine.policy.AllowDangerous

	queryDescription := "Run a single SQL statement against the connected MySQL/MariaDB database. " +
		"Values must be bound through params, never interpolated into the statement."
	if allowDangerous {
		queryDescription += " Mutating statements (INSERT, UPDATE, DELETE, DDL) are permitted."
	} else {
		queryDescription += " Only read statements are permitted; mutating statements are rejected."
	}

	mutationNote := ""
	if !allowDangerous {
		mutationNote = " Rejected under the current safety policy."
	}

	reg.Register(Tool{
		Name: "mysql",
		Description: fmt.Sprintf("Look up the schema of a table in the connected database: columns, types, "+
			"nullability, keys, and indexes. Pass %q as table_name to list every table.", AllTables),
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"table_name": {
					Type:        "string",
					Description: fmt.Sprintf("Table name, or %q for all tables in the database.", AllTables),
				},
			},
			Required: []string{"table_name"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var input SchemaInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return engine.TableSchema(ctx, input)
	})

	reg.Register(Tool{
		Name:        "query",
		Description: queryDescription,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"sql": {
					Type:        "string",
					Description: "A single SQL statement with ? placeholders for bound values.",
				},
				"params": {
					Type:        "array",
					Description: "Values for the ? placeholders, in order.",
				},
			},
			Required: []string{"sql"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var input QueryInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return engine.Query(ctx, input)
	})

	reg.Register(Tool{
		Name:        "insert",
		Description: "Insert a single row. Values are always bound as parameters." + mutationNote,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"table": {Type: "string", Description: "Target table name."},
				"values": {
					Type:        "object",
					Description: "Column name to value mapping for the new row.",
				},
			},
			Required: []string{"table", "values"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var input InsertInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return engine.Insert(ctx, input)
	})

	reg.Register(Tool{
		Name: "update",
		Description: "Update rows matching a where condition. A non-empty where condition is mandatory." +
			mutationNote,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"table": {Type: "string", Description: "Target table name."},
				"set": {
					Type:        "object",
					Description: "Column name to new value mapping.",
				},
				"where": {
					Type:        "string",
					Description: "SQL condition with ? placeholders, e.g. \"id = ?\". Must be non-empty.",
				},
				"params": {
					Type:        "array",
					Description: "Values for the where condition's ? placeholders, in order.",
				},
			},
			Required: []string{"table", "set", "where"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var input UpdateInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return engine.Update(ctx, input)
	})

	reg.Register(Tool{
		Name: "delete",
		Description: "Delete rows matching a where condition. A non-empty where condition is mandatory." +
			mutationNote,
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"table": {Type: "string", Description: "Target table name."},
				"where": {
					Type:        "string",
					Description: "SQL condition with ? placeholders, e.g. \"id = ?\". Must be non-empty.",
				},
				"params": {
					Type:        "array",
					Description: "Values for the where condition's ? placeholders, in order.",
				},
			},
			Required: []string{"table", "where"},
		},
	}, func(ctx context.Context, args json.RawMessage) (any, error) {
		var input DeleteInput
		if err := decodeArgs(args, &input); err != nil {
			return nil, err
		}
		return engine.Delete(ctx, input)
	})
}

// decodeArgs decodes tool arguments; malformed JSON is an argument error,
// not an internal one.
func decodeArgs(args json.RawMessage, target any) error {
	if len(args) == 0 {
		return invalidArgs("arguments are required")
	}
	if err := json.Unmarshal(args, target); err != nil {
		return invalidArgs("malformed arguments: %v", err)
	}
	return nil
}
