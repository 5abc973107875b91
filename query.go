package mymcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"

	"github.com/tmarkel/mysql-mcp/internal/pool"
	"github.com/tmarkel/mysql-mcp/internal/safety"
)

// Query executes the query tool pipeline: validate, classify, apply the
// safety policy, resolve the timeout, lease a connection, execute, collect.
// A statement denied by the policy never leases a connection — the pool's
// idle count is observably unchanged for rejected statements.
func (p *MySQLMcp) Query(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	startTime := time.Now()
	stmt := input.SQL

	// 1. Length cap before any other processing.
	if len(stmt) > p.config.Query.MaxSQLLength {
		return nil, invalidArgs("sql is %d bytes, exceeds maximum of %d bytes", len(stmt), p.config.Query.MaxSQLLength)
	}

	// 2. Classify. Empty and multi-statement input fail here.
	cl, err := p.classifier.Classify(stmt)
	if err != nil {
		return nil, err
	}

	// 3. Policy gate. Must precede the lease: a denied statement has zero
	// observable side effects.
	if !p.policy.Permits(cl) {
		p.logger.Warn().Str("keyword", cl.Keyword).Msg("statement rejected by safety policy")
		return nil, &PolicyViolationError{Tool: "query", Keyword: cl.Keyword}
	}

	// 4. Resolve timeout.
	execTimeout, timeoutRule := p.timeoutMgr.Resolve(stmt)
	queryCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	// 5. Lease a connection.
	lease, err := p.pool.Acquire(queryCtx)
	if err != nil {
		return nil, p.wrapAcquireError(err)
	}
	defer lease.Release()

	// 6. Execute. Dangerous statements run through Exec and report affected
	// rows; everything else returns result rows.
	var output *QueryOutput
	if cl.Kind == safety.KindDangerous {
		result, err := lease.Conn().ExecContext(queryCtx, stmt, input.Params...)
		if err != nil {
			return nil, p.databaseError(lease, err)
		}
		affected, _ := result.RowsAffected()
		output = &QueryOutput{Columns: []string{}, Rows: []map[string]any{}, RowsAffected: affected}
	} else {
		rows, err := lease.Conn().QueryContext(queryCtx, stmt, input.Params...)
		if err != nil {
			return nil, p.databaseError(lease, err)
		}
		output, err = collectRows(rows)
		if err != nil {
			return nil, p.databaseError(lease, err)
		}
	}

	// 7. Sanitize and truncate before anything leaves the engine.
	output.Rows = p.sanitizer.Rows(output.Rows)
	p.truncateIfNeeded(output)

	logEvent := p.logger.Info().
		Str("sql", truncateForLog(stmt, 200)).
		Str("kind", cl.Kind.String()).
		Dur("duration", time.Since(startTime)).
		Int("row_count", len(output.Rows)).
		Int64("rows_affected", output.RowsAffected)
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	if p.sanitizer.HasRules() {
		logEvent = logEvent.Bool("sanitized", true)
	}
	logEvent.Msg("query executed")

	return output, nil
}

// collectRows reads all rows into JSON-friendly maps. The driver returns
// []byte for most text/numeric columns; those are decoded to strings.
func collectRows(rows *sql.Rows) (*QueryOutput, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &QueryOutput{Columns: columns, Rows: resultRows}, nil
}

// convertValue converts a driver-returned value to a JSON-friendly Go type.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	default:
		return val
	}
}

// wrapAcquireError passes pool errors through untouched (the session maps
// them to their own code) and wraps everything else as a database error.
func (p *MySQLMcp) wrapAcquireError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, pool.ErrExhausted) || errors.Is(err, pool.ErrClosed) {
		return err
	}
	return p.databaseError(nil, err)
}

// databaseError converts a driver failure into a DatabaseError with any
// configured error prompts appended. Server-side errors (the server answered
// with a MySQL error packet) leave the connection usable; anything else is
// treated as a broken connection and the lease is discarded on release.
func (p *MySQLMcp) databaseError(lease brokenMarker, err error) error {
	var mysqlErr *mysql.MySQLError
	serverSide := errors.As(err, &mysqlErr)
	if !serverSide && lease != nil {
		lease.MarkBroken()
	}

	errMsg := err.Error()
	prompt := p.errPrompts.Match(errMsg)
	patterns := p.errPrompts.MatchedPatterns(errMsg)

	logEvent := p.logger.Error().Err(err).Bool("server_side", serverSide)
	if len(patterns) > 0 {
		logEvent = logEvent.Strs("error_prompts", patterns)
	}
	logEvent.Msg("database error")

	if prompt != "" {
		errMsg = errMsg + "\n\n" + prompt
	}
	return &DatabaseError{Message: errMsg, Err: err}
}

// brokenMarker is the slice of a lease the error path needs.
type brokenMarker interface {
	MarkBroken()
}

// truncateIfNeeded drops result rows when their JSON encoding exceeds
// MaxResultLength characters, leaving a notice for the agent.
func (p *MySQLMcp) truncateIfNeeded(output *QueryOutput) {
	jsonBytes, _ := json.Marshal(output.Rows)
	if utf8.RuneCount(jsonBytes) <= p.config.Query.MaxResultLength {
		return
	}
	output.Rows = []map[string]any{}
	output.Truncated = true
	output.Notice = "Result is too long! Add limits to your query."
}

// truncateForLog truncates a string for log output to avoid oversized log
// entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
