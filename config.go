package mymcp

// Config is the base configuration used by library mode via New().
type Config struct {
	Pool         PoolConfig         `toml:"pool"`
	Safety       SafetyConfig       `toml:"safety"`
	Query        QueryConfig        `toml:"query"`
	ErrorPrompts []ErrorPromptRule  `toml:"error_prompts"`
	Sanitization []SanitizationRule `toml:"sanitization"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connection ConnectionConfig `toml:"connection"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
// An empty Password triggers an interactive prompt when stdin is a terminal.
type ConnectionConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxConns              int `toml:"max_conns"`
	AcquireTimeoutSeconds int `toml:"acquire_timeout_seconds"`
}

// SafetyConfig controls the SQL safety policy.
// AllowDangerousQueries defaults to false: mutating and DDL statements are
// rejected before any connection is leased.
type SafetyConfig struct {
	AllowDangerousQueries  bool     `toml:"allow_dangerous_queries"`
	ExtraDangerousKeywords []string `toml:"extra_dangerous_keywords"`
}

// QueryConfig holds statement execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds int           `toml:"default_timeout_seconds"`
	SchemaTimeoutSeconds  int           `toml:"schema_timeout_seconds"`
	MaxSQLLength          int           `toml:"max_sql_length"`
	MaxResultLength       int           `toml:"max_result_length"`
	TimeoutRules          []TimeoutRule `toml:"timeout_rules"`
}

// TimeoutRule maps a statement pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `toml:"pattern"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern to a guidance message.
type ErrorPromptRule struct {
	Pattern string `toml:"pattern"`
	Message string `toml:"message"`
}

// SanitizationRule defines a regex-based field redaction rule.
type SanitizationRule struct {
	Pattern     string `toml:"pattern"`
	Replacement string `toml:"replacement"`
	Description string `toml:"description"`
}

// LoggingConfig holds logging settings for CLI mode. Output defaults to
// stderr — stdout carries the protocol stream.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, text
	Output string `toml:"output"` // stderr, or file path
}
