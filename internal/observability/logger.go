package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used for CLI commands (SIMPLE profile)
	CLILogger *logging.Logger

	// ServerLogger is used by the HTTP server and the generators it drives.
	ServerLogger *logging.Logger
)

// Logging profiles accepted by NewServerLogger.
const (
	ProfileSimple     = "simple"
	ProfileStructured = "structured"
)

// ServerLoggerOptions selects level, profile and the telemetry namespace.
type ServerLoggerOptions struct {
	Level     string
	Profile   string
	Namespace string
}

// InitCLILogger initializes the CLI logger with SIMPLE profile
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger installs a structured server logger at logLevel.
func InitServerLogger(serviceName string, logLevel string, namespace ...string) {
	opts := ServerLoggerOptions{Level: logLevel, Profile: ProfileStructured}
	if len(namespace) > 0 {
		opts.Namespace = namespace[0]
	}
	logger, err := NewServerLogger(serviceName, opts)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// NewServerLogger builds the server logger. The simple profile writes
// human-readable lines, which suits running `serve` in a terminal; the
// structured profile writes JSON with correlation ids to stderr.
func NewServerLogger(serviceName string, opts ServerLoggerOptions) (*logging.Logger, error) {
	level := parseLogLevel(opts.Level)

	switch strings.ToLower(strings.TrimSpace(opts.Profile)) {
	case ProfileSimple:
		logger, err := logging.NewCLI(serviceName)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(logging.Severity(level))
		return logger, nil
	case "", ProfileStructured:
	default:
		return nil, fmt.Errorf("unknown logging profile %q (want %s or %s)", opts.Profile, ProfileSimple, ProfileStructured)
	}

	staticFields := make(map[string]any)
	if opts.Namespace != "" {
		staticFields["namespace"] = opts.Namespace
	}

	return logging.New(&logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: level,
		Service:      serviceName,
		Environment:  "production",
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{Name: "correlation", Enabled: true, Order: 100, Config: make(map[string]any)},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:    "console",
				Format:  "json",
				Console: &logging.ConsoleSinkConfig{Stream: "stderr", Colorize: false},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	})
}

// parseLogLevel maps config level names to logging severities. Unknown
// names fall back to INFO.
func parseLogLevel(levelStr string) string {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr reports a logger setup failure. No logger exists yet.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	code := int(exitCode)
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
	if info, ok := foundry.GetExitCodeInfo(exitCode); ok {
		code = info.Code
		_, _ = fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	}
	os.Exit(code)
}
