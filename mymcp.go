package mymcp

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmarkel/mysql-mcp/internal/errprompt"
	"github.com/tmarkel/mysql-mcp/internal/pool"
	"github.com/tmarkel/mysql-mcp/internal/safety"
	"github.com/tmarkel/mysql-mcp/internal/sanitize"
	"github.com/tmarkel/mysql-mcp/internal/timeout"
)

// MySQLMcp is the core engine behind the MCP tools: TableSchema, Query,
// Insert, Update, and Delete. All exported methods are safe for concurrent
// use from multiple goroutines.
type MySQLMcp struct {
	config     Config
	db         *sql.DB
	pool       *pool.Pool
	classifier *safety.Classifier
	policy     safety.Policy
	errPrompts *errprompt.Matcher
	sanitizer  *sanitize.Sanitizer
	timeoutMgr *timeout.Manager
	logger     zerolog.Logger
}

// New creates a new MySQLMcp instance. dsn is a go-sql-driver DSN (must
// include credentials). Panics on invalid config. Returns error only for
// runtime failures. The database is dialed lazily, so New does no I/O and
// takes no context — call Ping to verify connectivity at startup.
func New(dsn string, config Config, logger zerolog.Logger) (*MySQLMcp, error) {
	// --- Config validation (panics on invalid config) ---

	if dsn == "" {
		panic("mymcp: dsn must be non-empty")
	}
	if config.Pool.MaxConns == 0 {
		config.Pool.MaxConns = 5
	}
	if config.Pool.MaxConns < 0 {
		panic("mymcp: pool.max_conns must be > 0")
	}
	if config.Pool.AcquireTimeoutSeconds == 0 {
		config.Pool.AcquireTimeoutSeconds = 10
	}
	if config.Pool.AcquireTimeoutSeconds < 0 {
		panic("mymcp: pool.acquire_timeout_seconds must be > 0")
	}
	if config.Query.DefaultTimeoutSeconds == 0 {
		config.Query.DefaultTimeoutSeconds = 30
	}
	if config.Query.DefaultTimeoutSeconds < 0 {
		panic("mymcp: query.default_timeout_seconds must be > 0")
	}
	if config.Query.SchemaTimeoutSeconds == 0 {
		config.Query.SchemaTimeoutSeconds = 10
	}
	if config.Query.SchemaTimeoutSeconds < 0 {
		panic("mymcp: query.schema_timeout_seconds must be > 0")
	}
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = 100000
	}
	if config.Query.MaxSQLLength < 0 {
		panic("mymcp: query.max_sql_length must be > 0")
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.MaxResultLength < 0 {
		panic("mymcp: query.max_result_length must be > 0")
	}
	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("mymcp: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	// --- Open database handle (lazy; no I/O yet) ---

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}

	// The driver-level pool mirrors the lease pool's ceiling so the lease
	// accounting is the single source of truth for concurrency.
	db.SetMaxOpenConns(config.Pool.MaxConns)
	db.SetMaxIdleConns(config.Pool.MaxConns)

	connPool := pool.New(
		func(ctx context.Context) (pool.Conn, error) { return db.Conn(ctx) },
		pool.Config{
			Size:           config.Pool.MaxConns,
			AcquireTimeout: time.Duration(config.Pool.AcquireTimeoutSeconds) * time.Second,
		},
	)

	// --- Initialize internal components ---

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}

	return &MySQLMcp{
		config:     config,
		db:         db,
		pool:       connPool,
		classifier: safety.NewClassifier(config.Safety.ExtraDangerousKeywords),
		policy:     safety.Policy{AllowDangerous: config.Safety.AllowDangerousQueries},
		errPrompts: errprompt.NewMatcher(mapErrorPromptRules(config.ErrorPrompts)),
		sanitizer:  sanitize.NewSanitizer(mapSanitizationRules(config.Sanitization)),
		timeoutMgr: timeout.NewManager(timeout.Config{
			DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
			Rules:          timeoutRules,
		}),
		logger: logger,
	}, nil
}

// Ping verifies database connectivity.
func (p *MySQLMcp) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// PoolStats returns the lease pool's idle/leased snapshot.
func (p *MySQLMcp) PoolStats() pool.Stats {
	return p.pool.Stats()
}

// Close shuts down the lease pool and the underlying database handle.
func (p *MySQLMcp) Close(ctx context.Context) {
	p.pool.Close()
	p.db.Close()
}

func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{Pattern: r.Pattern, Message: r.Message}
	}
	return result
}

func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{Pattern: r.Pattern, Replacement: r.Replacement}
	}
	return result
}
