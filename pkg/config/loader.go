package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile         string
	envPrefix          string
	serviceNameDefault string
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "APP")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithServiceNameDefault sets the default service.name used when no config/env override is provided.
func (l *ViperLoader) WithServiceNameDefault(serviceName string) *ViperLoader {
	if l == nil {
		return l
	}
	l.serviceNameDefault = strings.TrimSpace(serviceName)
	return l
}

// Load loads configuration with precedence: ENV > secrets file > config file > defaults.
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()
	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	if err := l.mergeSecrets(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	l.applyMongoDBShortcut(&cfg)

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate normalizes cfg and checks it.
func (l *ViperLoader) Validate(cfg *Config) error {
	cfg.Observability.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel))
	cfg.Observability.LogFormat = strings.ToLower(strings.TrimSpace(cfg.Observability.LogFormat))
	for name, client := range cfg.MongoDB.Clients {
		client.Hosts = normalizeStringSlice(client.Hosts)
		cfg.MongoDB.Clients[name] = client
	}
	return cfg.Validate()
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	v.BindEnv("observability.log_level", l.prefixedEnv("OBSERVABILITY_LOG_LEVEL"), l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("observability.log_format", l.prefixedEnv("OBSERVABILITY_LOG_FORMAT"), l.prefixedEnv("LOG_FORMAT"))
	v.BindEnv("observability.tracing_enabled", l.prefixedEnv("OBSERVABILITY_TRACING_ENABLED"))
	v.BindEnv("observability.tracing_sample_rate", l.prefixedEnv("OBSERVABILITY_TRACING_SAMPLE_RATE"))
	v.BindEnv("observability.tracing_endpoint", l.prefixedEnv("OBSERVABILITY_TRACING_ENDPOINT"))

	v.BindEnv("mongodb.health_check_timeout", l.prefixedEnv("MONGODB_HEALTH_CHECK_TIMEOUT"))
}

// applyMongoDBShortcut registers the default client from <PREFIX>_MONGODB_URI and
// <PREFIX>_MONGODB_DATABASE. Client maps have no fixed keys, so they cannot be bound like the
// other settings.
func (l *ViperLoader) applyMongoDBShortcut(cfg *Config) {
	uri := strings.TrimSpace(os.Getenv(l.prefixedEnv("MONGODB_URI")))
	if uri == "" {
		return
	}
	client := cfg.MongoDB.Clients[DefaultClientName]
	client.URI = uri
	client.Hosts = nil
	if db := strings.TrimSpace(os.Getenv(l.prefixedEnv("MONGODB_DATABASE"))); db != "" {
		client.Databases = []MongoDatabaseConfig{{Name: db}}
	}
	if cfg.MongoDB.Clients == nil {
		cfg.MongoDB.Clients = make(map[string]MongoClientConfig)
	}
	cfg.MongoDB.Clients[DefaultClientName] = client
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "APP"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

func (l *ViperLoader) defaultServiceName(fallback string) string {
	if l != nil {
		if configured := strings.TrimSpace(l.serviceNameDefault); configured != "" {
			return configured
		}
	}
	return strings.TrimSpace(fallback)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", l.defaultServiceName(cfg.Service.Name))
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)

	v.SetDefault("mongodb.health_check_timeout", cfg.MongoDB.HealthCheckTimeout)
}

func normalizeStringSlice(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
