package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	mymcp "github.com/tmarkel/mysql-mcp"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

func runServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "Path to configuration file")
	host := fs.String("host", "", "Database host (overrides config)")
	port := fs.Int("port", 0, "Database port (overrides config)")
	username := fs.String("username", "", "Database username (overrides config)")
	password := fs.String("password", "", "Database password (overrides config)")
	database := fs.String("database", "", "Database name (overrides config)")
	allowDangerous := fs.Bool("allow-dangerous-queries", false, "Allow mutating and DDL statements")
	fs.Parse(os.Args[2:])

	ctx := context.Background()

	// 1. Load ServerConfig. A missing file is fine: flags and defaults can
	// carry a full configuration.
	serverConfig, err := loadServerConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Apply flag overrides.
	if *host != "" {
		serverConfig.Connection.Host = *host
	}
	if *port > 0 {
		serverConfig.Connection.Port = *port
	}
	if *username != "" {
		serverConfig.Connection.Username = *username
	}
	if *password != "" {
		serverConfig.Connection.Password = *password
	}
	if *database != "" {
		serverConfig.Connection.Database = *database
	}
	if *allowDangerous {
		serverConfig.Safety.AllowDangerousQueries = true
	}

	if serverConfig.Connection.Database == "" {
		return fmt.Errorf("connection.database must be set (config file or --database)")
	}

	// 3. Resolve credentials. Password prompt only works on a terminal;
	// stdin otherwise belongs to the protocol stream.
	if serverConfig.Connection.Username == "" && isTTY(os.Stdin.Fd()) {
		serverConfig.Connection.Username = promptInput("Username: ")
	}
	if serverConfig.Connection.Password == "" && isTTY(os.Stdin.Fd()) {
		serverConfig.Connection.Password = promptPassword("Password: ")
	}

	// 4. Setup logger. Protocol frames own stdout, so logs default to stderr.
	logger := setupLogger(serverConfig.Logging)

	// 5. Create the engine.
	dsn := buildDSN(serverConfig.Connection)
	engine, err := mymcp.New(dsn, serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer engine.Close(ctx)

	// 6. Test database connection, retrying while the server comes up.
	if err := pingWithRetry(ctx, engine, logger); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 7. Register tools and run the stdio session until EOF.
	registry := mymcp.NewRegistry()
	mymcp.RegisterTools(registry, engine)

	session := mymcp.NewSession(registry, os.Stdin, os.Stdout, logger)
	logger.Info().
		Str("database", serverConfig.Connection.Database).
		Bool("allow_dangerous_queries", serverConfig.Safety.AllowDangerousQueries).
		Msg("starting gomymcp server on stdio")
	return session.Run(ctx)
}

func pingWithRetry(ctx context.Context, engine *mymcp.MySQLMcp, logger zerolog.Logger) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = engine.Ping(ctx); err == nil {
			return nil
		}
		if attempt < connectAttempts {
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("database not reachable, retrying")
			time.Sleep(connectBackoff)
		}
	}
	return err
}

func defaultConfigPath() string {
	if path := os.Getenv("MYSQLMCP_CONFIG_PATH"); path != "" {
		return path
	}
	return ".gomymcp/config.toml"
}

func loadServerConfig(configPath string) (*mymcp.ServerConfig, error) {
	var config mymcp.ServerConfig
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &config, nil
	}
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return &config, nil
}

// buildDSN assembles a driver DSN from connection parameters. parseTime
// makes the driver hand back time.Time for temporal columns.
func buildDSN(conn mymcp.ConnectionConfig) string {
	cfg := mysql.NewConfig()
	cfg.User = conn.Username
	cfg.Passwd = conn.Password
	cfg.Net = "tcp"
	host := conn.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	cfg.Addr = fmt.Sprintf("%s:%d", host, port)
	cfg.DBName = conn.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func setupLogger(config mymcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
