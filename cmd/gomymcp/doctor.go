package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"

	mymcp "github.com/tmarkel/mysql-mcp"
	"github.com/tmarkel/mysql-mcp/internal/meta"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to configuration file")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *configPath)
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "gomymcp %s\n\n", meta.Version)

	// Load and validate config
	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'gomymcp doctor' again.")
		return nil
	}

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config, configPath)
	return nil
}

// doctorValidateConfig loads and validates the config file, printing check results.
// Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*mymcp.ServerConfig, bool) {
	allPassed := true

	// Check 1: Config file exists and is valid TOML
	var config mymcp.ServerConfig
	if _, err := os.Stat(configPath); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file readable (%s)", configPath))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, fmt.Sprintf("Config file readable (%s)", configPath))

	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Config file is valid TOML: %v", err))
		allPassed = false
		return nil, allPassed
	}
	printCheck(w, useColor, true, "Config file is valid TOML")

	// Check 2: connection.database is set
	if config.Connection.Database == "" {
		printCheck(w, useColor, false, "connection.database is set")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("connection.database is set (%s)", config.Connection.Database))
	}

	// Check 3: pool values are not negative
	if config.Pool.MaxConns < 0 || config.Pool.AcquireTimeoutSeconds < 0 {
		printCheck(w, useColor, false, "pool.max_conns and pool.acquire_timeout_seconds are >= 0")
		allPassed = false
	} else {
		printCheck(w, useColor, true, "pool settings are valid")
	}

	// Check 4: Regex patterns compile
	regexOK := true

	for i, rule := range config.ErrorPrompts {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("error_prompts[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Sanitization {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("sanitization[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Query.TimeoutRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("timeout_rules[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
		if rule.TimeoutSeconds <= 0 {
			printCheck(w, useColor, false, fmt.Sprintf("timeout_rules[%d] timeout_seconds is > 0", i))
			allPassed = false
		}
	}

	if regexOK {
		printCheck(w, useColor, true, "All regex patterns compile")
	}

	return &config, allPassed
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI agents.
// The server is a stdio server, so every snippet is a command + args pair.
func printAgentSnippets(w io.Writer, useColor bool, config *mymcp.ServerConfig, configPath string) {
	heading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
		} else {
			fmt.Fprintln(w, title)
		}
	}

	subheading := func(title string) {
		if useColor {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
		} else {
			fmt.Fprintf(w, "  %s\n", title)
		}
	}

	stdioSnippet := fmt.Sprintf(`  {
    "mcpServers": {
      "mysql": {
        "command": "gomymcp",
        "args": ["serve", "--config", "%s"]
      }
    }
  }
`, configPath)

	heading("Agent Connection Snippets")
	fmt.Fprintln(w)

	// Claude Code
	subheading("Claude Code")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add mysql -- gomymcp serve --config %s\n\n", configPath)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprint(w, stdioSnippet)
	fmt.Fprintln(w)

	// Copilot CLI
	subheading("Copilot CLI (~/.copilot/mcp-config.json)")
	fmt.Fprint(w, stdioSnippet)
	fmt.Fprintln(w)

	// Gemini CLI
	subheading("Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprint(w, stdioSnippet)
	fmt.Fprintln(w)

	// Cursor
	subheading("Cursor (.cursor/mcp.json)")
	fmt.Fprint(w, stdioSnippet)
	fmt.Fprintln(w)

	// Windsurf
	subheading("Windsurf (~/.codeium/windsurf/mcp_config.json)")
	fmt.Fprint(w, stdioSnippet)
}
