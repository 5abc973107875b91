package mymcp

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/tmarkel/mysql-mcp/internal/ident"
	"github.com/tmarkel/mysql-mcp/internal/safety"
)

// Insert builds and executes a parameterized INSERT. Mutating by
// construction: rejected by the policy gate before any connection is leased
// unless dangerous queries are allowed.
func (p *MySQLMcp) Insert(ctx context.Context, input InsertInput) (*MutationOutput, error) {
	stmt, args, err := buildInsert(input)
	if err != nil {
		return nil, err
	}
	return p.execMutation(ctx, "insert", stmt, args, true)
}

// Update builds and executes a parameterized UPDATE. Requires a non-empty
// where condition even under the dangerous-allowed policy.
func (p *MySQLMcp) Update(ctx context.Context, input UpdateInput) (*MutationOutput, error) {
	stmt, args, err := buildUpdate(input)
	if err != nil {
		return nil, err
	}
	return p.execMutation(ctx, "update", stmt, args, false)
}

// Delete builds and executes a parameterized DELETE. Requires a non-empty
// where condition even under the dangerous-allowed policy.
func (p *MySQLMcp) Delete(ctx context.Context, input DeleteInput) (*MutationOutput, error) {
	stmt, args, err := buildDelete(input)
	if err != nil {
		return nil, err
	}
	return p.execMutation(ctx, "delete", stmt, args, false)
}

// buildInsert assembles `INSERT INTO t (cols...) VALUES (?...)`. Column
// order is sorted for deterministic statements; values are always bound.
func buildInsert(input InsertInput) (string, []any, error) {
	if err := ident.Check("table", input.Table); err != nil {
		return "", nil, invalidArgs("%v", err)
	}
	if len(input.Values) == 0 {
		return "", nil, invalidArgs("values must be a non-empty object")
	}

	columns := sortedKeys(input.Values)
	args := make([]any, 0, len(columns))
	quoted := make([]string, 0, len(columns))
	placeholders := make([]string, 0, len(columns))
	for _, col := range columns {
		if err := ident.Check("column", col); err != nil {
			return "", nil, invalidArgs("%v", err)
		}
		quoted = append(quoted, ident.Quote(col))
		placeholders = append(placeholders, "?")
		args = append(args, input.Values[col])
	}

	stmt := "INSERT INTO " + ident.Quote(input.Table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	return stmt, args, nil
}

// buildUpdate assembles `UPDATE t SET col = ?, ... WHERE <cond>`. The where
// fragment is caller-supplied SQL; its bind values ride in Params.
func buildUpdate(input UpdateInput) (string, []any, error) {
	if err := ident.Check("table", input.Table); err != nil {
		return "", nil, invalidArgs("%v", err)
	}
	if len(input.Set) == 0 {
		return "", nil, invalidArgs("set must be a non-empty object")
	}
	where, err := checkWhere(input.Where)
	if err != nil {
		return "", nil, err
	}

	columns := sortedKeys(input.Set)
	args := make([]any, 0, len(columns)+len(input.Params))
	assignments := make([]string, 0, len(columns))
	for _, col := range columns {
		if err := ident.Check("column", col); err != nil {
			return "", nil, invalidArgs("%v", err)
		}
		assignments = append(assignments, ident.Quote(col)+" = ?")
		args = append(args, input.Set[col])
	}
	args = append(args, input.Params...)

	stmt := "UPDATE " + ident.Quote(input.Table) +
		" SET " + strings.Join(assignments, ", ") + " WHERE " + where
	if err := safety.CheckSingleStatement(stmt); err != nil {
		return "", nil, invalidArgs("where condition must not contain a statement separator")
	}
	return stmt, args, nil
}

// buildDelete assembles `DELETE FROM t WHERE <cond>`.
func buildDelete(input DeleteInput) (string, []any, error) {
	if err := ident.Check("table", input.Table); err != nil {
		return "", nil, invalidArgs("%v", err)
	}
	where, err := checkWhere(input.Where)
	if err != nil {
		return "", nil, err
	}

	stmt := "DELETE FROM " + ident.Quote(input.Table) + " WHERE " + where
	if err := safety.CheckSingleStatement(stmt); err != nil {
		return "", nil, invalidArgs("where condition must not contain a statement separator")
	}
	return stmt, append([]any(nil), input.Params...), nil
}

// checkWhere enforces the unconditioned-mutation rule: update/delete without
// a where condition is almost never intentional and is rejected regardless
// of policy.
func checkWhere(where string) (string, error) {
	where = strings.TrimSpace(where)
	if where == "" {
		return "", ErrUnconditionedMutation
	}
	return where, nil
}

// execMutation runs the shared mutation pipeline: policy gate first (these
// tools are dangerous by construction, regardless of statement text), then
// lease, execute, report affected rows.
func (p *MySQLMcp) execMutation(ctx context.Context, tool, stmt string, args []any, wantInsertID bool) (*MutationOutput, error) {
	startTime := time.Now()

	if !p.policy.AllowDangerous {
		p.logger.Warn().Str("tool", tool).Msg("mutation rejected by safety policy")
		return nil, &PolicyViolationError{Tool: tool}
	}

	execTimeout, _ := p.timeoutMgr.Resolve(stmt)
	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	lease, err := p.pool.Acquire(execCtx)
	if err != nil {
		return nil, p.wrapAcquireError(err)
	}
	defer lease.Release()

	result, err := lease.Conn().ExecContext(execCtx, stmt, args...)
	if err != nil {
		return nil, p.databaseError(lease, err)
	}

	output := &MutationOutput{}
	output.RowsAffected, _ = result.RowsAffected()
	if wantInsertID {
		output.LastInsertID, _ = result.LastInsertId()
	}

	p.logger.Info().
		Str("tool", tool).
		Dur("duration", time.Since(startTime)).
		Int64("rows_affected", output.RowsAffected).
		Msg("mutation executed")

	return output, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
