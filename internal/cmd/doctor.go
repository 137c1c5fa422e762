package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pippora/pippora/internal/config"
	errwrap "github.com/pippora/pippora/internal/errors"
	"github.com/pippora/pippora/internal/observability"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on the installation and configuration and suggest fixes for common issues.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		identity := GetAppIdentity()
		appName := "pippora"
		if identity != nil && identity.BinaryName != "" {
			appName = identity.BinaryName
		}
		log.Info("=== " + appName + " doctor ===")
		log.Info("")

		allChecks := true
		const totalChecks = 6

		version := crucible.GetVersion()
		log.Info(fmt.Sprintf("[1/%d] Checking runtime... ✅ %s %s/%s, gofulmen %s", totalChecks, runtime.Version(), runtime.GOOS, runtime.GOARCH, version.Gofulmen),
			zap.String("go_version", runtime.Version()),
			zap.String("gofulmen_version", version.Gofulmen),
			zap.String("crucible_version", version.Crucible))

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			log.Error(fmt.Sprintf("[2/%d] Checking config directory... ❌ Cannot resolve config directory", totalChecks))
			ExitWithCode(log, foundry.ExitFileNotFound, "Cannot resolve config directory", errwrap.NewInternalError("config directory not resolved"))
		}
		log.Info(fmt.Sprintf("[2/%d] Checking config file... %s (%s)", totalChecks, configPath, existenceStatus(fileExists(configPath))))

		cfg, err := loadConfig()
		if err != nil {
			log.Error(fmt.Sprintf("[3/%d] Checking configuration... ❌ invalid", totalChecks), zap.Error(err))
			log.Info("")
			log.Warn("⚠️  Fix the configuration and run doctor again.")
			return
		}
		log.Info(fmt.Sprintf("[3/%d] Checking configuration... ✅ valid", totalChecks))

		if cfg.OpenAI.APIKey != "" {
			log.Info(fmt.Sprintf("[4/%d] Checking OpenAI key... ✅ configured", totalChecks))
		} else {
			log.Warn(fmt.Sprintf("[4/%d] Checking OpenAI key... ⚠️  not set (OPENAI_API_KEY or %sOPENAI_API_KEY)", totalChecks, envPrefix()))
			allChecks = false
		}

		if cfg.RateLimit.Enabled {
			log.Info(fmt.Sprintf("[5/%d] Checking rate limits... ✅ email %d/%s, ip %d/%s, %d whitelisted", totalChecks,
				cfg.RateLimit.Email.Limit, cfg.RateLimit.Email.Window,
				cfg.RateLimit.IP.Limit, cfg.RateLimit.IP.Window,
				len(cfg.RateLimit.Whitelist)))
		} else {
			log.Warn(fmt.Sprintf("[5/%d] Checking rate limits... ⚠️  disabled (set RATE_LIMIT_ENABLED=true in production)", totalChecks))
		}

		if !cfg.Store.Enabled {
			log.Info(fmt.Sprintf("[6/%d] Checking history store... ℹ️  disabled", totalChecks))
		} else if cfg.Store.URL != "" {
			log.Info(fmt.Sprintf("[6/%d] Checking history store... ✅ %s (remote)", totalChecks, cfg.Store.URL))
		} else {
			absPath, _ := filepath.Abs(cfg.Store.Path)
			if info, statErr := os.Stat(absPath); statErr == nil {
				log.Info(fmt.Sprintf("[6/%d] Checking history store... ✅ %s (%s)", totalChecks, absPath, formatFileSize(info.Size())))
			} else if os.IsNotExist(statErr) {
				log.Info(fmt.Sprintf("[6/%d] Checking history store... ℹ️  %s (created on first use)", totalChecks, absPath))
			} else {
				log.Warn(fmt.Sprintf("[6/%d] Checking history store... ⚠️  %s", totalChecks, absPath), zap.Error(statErr))
				allChecks = false
			}
		}

		log.Info("")
		if allChecks {
			log.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", appName))
		} else {
			log.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
	},
}

var (
	doctorInitForce     bool
	doctorInitOpenAIKey string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		key := strings.TrimSpace(doctorInitOpenAIKey)
		if strings.EqualFold(key, "prompt") {
			value, err := promptForValue("Enter OpenAI API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			key = value
		}

		body, err := buildInitConfig(key)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		mode := os.FileMode(0644)
		if key != "" {
			mode = 0600
		}
		if err := os.WriteFile(configPath, body, mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		configPath := config.DefaultConfigPath()
		dataDir := config.DefaultDataDir()

		log.Info("Configuration:")
		log.Info(fmt.Sprintf("  Config file:    %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		if dataDir != "" {
			log.Info(fmt.Sprintf("  Data directory: %s (%s)", dataDir, existenceStatus(fileExists(dataDir))))
		}

		log.Info("")
		log.Info("Environment:")
		for _, name := range []string{"OPENAI_API_KEY", "MAILERLITE_API_KEY", "RATE_LIMIT_ENABLED"} {
			log.Info(fmt.Sprintf("  %s: %s", name, envStatus(name)))
			if prefixed := envPrefix() + name; prefixed != name {
				log.Info(fmt.Sprintf("  %s: %s", prefixed, envStatus(prefixed)))
			}
		}

		cfg, err := loadConfig()
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return nil
		}

		log.Info("")
		log.Info("Effective Settings:")
		log.Info(fmt.Sprintf("  server:            %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info(fmt.Sprintf("  cors.allow_origin: %s", cfg.CORS.AllowOrigin))
		log.Info(fmt.Sprintf("  rate_limit:        %t", cfg.RateLimit.Enabled))
		log.Info(fmt.Sprintf("  rate_limit.stats:  %t", cfg.RateLimit.Stats.Enabled))
		log.Info(fmt.Sprintf("  mailinglist:       %t", cfg.MailingList.APIKey != ""))
		log.Info(fmt.Sprintf("  store:             %t (%s)", cfg.Store.Enabled, cfg.Store.Path))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid", zap.String("path", configFileUsed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitOpenAIKey, "openai-key", "", "set the OpenAI API key or use 'prompt' to enter")
}

// buildInitConfig renders a starter config with production-leaning rate
// limits. An empty key is left for the environment to supply.
func buildInitConfig(openAIKey string) ([]byte, error) {
	openai := map[string]any{"timeout": "120s"}
	if openAIKey != "" {
		openai["api_key"] = openAIKey
	}

	doc := map[string]any{
		"server": map[string]any{
			"host":                "0.0.0.0",
			"port":                8080,
			"trust_proxy_headers": false,
		},
		"openai": openai,
		"rate_limit": map[string]any{
			"enabled":   true,
			"email":     map[string]any{"limit": 5, "window": "24h"},
			"ip":        map[string]any{"limit": 7, "window": "24h"},
			"whitelist": []string{},
		},
		"store": map[string]any{"enabled": true},
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	header := "# pippora config - created by 'pippora doctor init'\n" +
		"# Set server.trust_proxy_headers to true only behind a proxy that overwrites\n" +
		"# X-Forwarded-For; otherwise clients can pick their own IP rate limit bucket.\n"
	return append([]byte(header), body...), nil
}

func promptForValue(prompt string) (string, error) {
	if _, err := fmt.Fprint(os.Stdout, prompt); err != nil {
		return "", err
	}
	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}

func envPrefix() string {
	if identity := GetAppIdentity(); identity != nil && identity.EnvPrefix != "" {
		return identity.EnvPrefix
	}
	return "PIPPORA_"
}
