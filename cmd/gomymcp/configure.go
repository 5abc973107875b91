package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
)

const starterConfig = `# gomymcp configuration

[connection]
host = "127.0.0.1"
port = 3306
username = ""
# Leave empty to be prompted on startup when running interactively.
password = ""
database = "%s"

[pool]
max_conns = 5
acquire_timeout_seconds = 10

[safety]
# Mutating and DDL statements are rejected unless this is true.
allow_dangerous_queries = false
extra_dangerous_keywords = []

[query]
default_timeout_seconds = 30
schema_timeout_seconds = 10
max_sql_length = 100000
max_result_length = 100000

# [[query.timeout_rules]]
# pattern = "(?i)^SELECT .* FROM big_table"
# timeout_seconds = 120

[logging]
level = "info"
format = "json"
output = "stderr"

# [[error_prompts]]
# pattern = "Deadlock found"
# message = "Retry the transaction after a short delay."

# [[sanitization]]
# pattern = "(?i)^(password|token|secret)$"
# replacement = "[redacted]"
# description = "Hide credential columns from agents."
`

func runConfigure() error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to configuration file")
	fs.Parse(os.Args[2:])

	printBanner(os.Stderr, isTTY(os.Stderr.Fd()))

	if _, err := os.Stat(*configPath); err == nil {
		return fmt.Errorf("config file %s already exists, remove it first", *configPath)
	}

	database := ""
	if isTTY(os.Stdin.Fd()) {
		database = promptInput("Database name: ")
	}

	if dir := filepath.Dir(*configPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(*configPath, []byte(fmt.Sprintf(starterConfig, database)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", *configPath)
	fmt.Fprintln(os.Stderr, "Edit the connection section, then run 'gomymcp doctor' to validate.")
	return nil
}
