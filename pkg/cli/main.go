// Package cli builds the docspec command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nimburion/docspec/pkg/config"
	"github.com/nimburion/docspec/pkg/health"
	"github.com/nimburion/docspec/pkg/observability/logger"
	"github.com/nimburion/docspec/pkg/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ServiceCommandOptions defines the identity of the command and service-specific hooks.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Optional: custom config validation (runs after the built-in validation)
	ValidateConfig func(cfg *config.Config) error

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// rootFlags holds the persistent flags shared by every subcommand.
type rootFlags struct {
	opts                ServiceCommandOptions
	cfgPath             string
	secretFilePath      string
	serviceNameOverride string
}

func (f *rootFlags) loadConfig() (*config.Config, logger.Logger, error) {
	return LoadConfigAndLogger(
		f.cfgPath,
		f.opts.EnvPrefix,
		f.secretFilePath,
		f.opts.ValidateConfig,
		f.opts.Name,
		f.serviceNameOverride,
	)
}

// NewServiceCommand creates the CLI with version, config, healthcheck, count and find subcommands.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "APP"
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := &rootFlags{opts: opts}
	rootCmd.PersistentFlags().StringVarP(&flags.cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&flags.secretFilePath, "secret-file", "",
		fmt.Sprintf("path to secrets file (sets %s_SECRETS_FILE)", resolveEnvPrefix(opts.EnvPrefix)))
	rootCmd.PersistentFlags().StringVar(&flags.serviceNameOverride, "service-name", "", "service name override")

	rootCmd.AddCommand(newVersionCommand(opts.Name))
	rootCmd.AddCommand(newConfigCommand(flags))
	rootCmd.AddCommand(newHealthCheckCommand(flags))
	rootCmd.AddCommand(newCountCommand(flags))
	rootCmd.AddCommand(newFindCommand(flags))

	for _, customCmd := range opts.CustomCommands {
		rootCmd.AddCommand(customCmd)
	}
	return rootCmd
}

func newVersionCommand(name string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current(name)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Service:    %s\n", info.Service)
			fmt.Fprintf(out, "Version:    %s\n", info.Version)
			fmt.Fprintf(out, "Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
		},
	}
}

func newConfigCommand(flags *rootFlags) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := flags.loadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
			return nil
		},
	})

	var showSecrets bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if !showSecrets {
				cfg = cfg.Redacted()
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show secret values")
	configCmd.AddCommand(showCmd)

	return configCmd
}

func newHealthCheckCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Check connectivity to every configured MongoDB client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := flags.loadConfig()
			if err != nil {
				return err
			}
			rt, err := openRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.close(context.WithoutCancel(cmd.Context()))

			checks := health.NewRegistry()
			checks.Register(health.NewMongoDBChecker(rt.registry, cfg.MongoDB.HealthCheckTimeout))
			result := checks.Check(cmd.Context())

			out := cmd.OutOrStdout()
			for _, check := range result.Checks {
				fmt.Fprintf(out, "%s: %s (%s)\n", check.Name, check.Status, check.Duration.Round(time.Millisecond))
				if check.Error != "" {
					fmt.Fprintf(out, "  error: %s\n", check.Error)
				}
			}
			if !result.IsHealthy() {
				return fmt.Errorf("health check failed: %s", result.Status)
			}
			return nil
		},
	}
}

// LoadConfigAndLogger loads the configuration and creates the logger it describes.
func LoadConfigAndLogger(
	cfgPath,
	envPrefix,
	secretFilePath string,
	customValidator func(*config.Config) error,
	defaultServiceName string,
	serviceNameOverride string,
) (*config.Config, logger.Logger, error) {
	if envPrefix == "" {
		envPrefix = "APP"
	}
	if err := applySecretFileFlag(envPrefix, secretFilePath); err != nil {
		return nil, nil, err
	}
	cfg, err := config.NewViperLoader(cfgPath, envPrefix).
		WithServiceNameDefault(defaultServiceName).
		Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyResolvedServiceName(cfg, defaultServiceName, serviceNameOverride)

	if customValidator != nil {
		if err := customValidator(cfg); err != nil {
			return nil, nil, fmt.Errorf("custom validation failed: %w", err)
		}
	}

	log, err := logger.NewZapLogger(logger.Config{
		Level:  logger.LogLevel(cfg.Observability.LogLevel),
		Format: logger.LogFormat(cfg.Observability.LogFormat),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	if cfg.Observability.LogLevel == string(logger.DebugLevel) {
		log.Debug("effective configuration", "config", fmt.Sprintf("%+v", *cfg.Redacted()))
	}
	return cfg, log, nil
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	info, err := os.Stat(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", secretFilePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("secret file %s must not be a directory", secretFilePath)
	}
	return os.Setenv(resolveEnvPrefix(envPrefix)+"_SECRETS_FILE", filepath.Clean(secretFilePath))
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveEnvPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return "APP"
	}
	return strings.ToUpper(trimmed)
}

func applyResolvedServiceName(cfg *config.Config, defaultServiceName, serviceNameOverride string) {
	if cfg == nil {
		return
	}
	cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, defaultServiceName, serviceNameOverride)
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if override := strings.TrimSpace(serviceNameOverride); override != "" {
		return override
	}
	if configured := strings.TrimSpace(currentConfigName); configured != "" {
		return configured
	}
	if fallback := strings.TrimSpace(defaultServiceName); fallback != "" {
		return fallback
	}
	return "app"
}
