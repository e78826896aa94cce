package config

import "time"

// Config is the root configuration of a docspec process.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service" yaml:"service"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
	MongoDB       MongoDBConfig       `mapstructure:"mongodb" yaml:"mongodb"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// ObservabilityConfig configures logging and tracing.
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string  `mapstructure:"log_format" yaml:"log_format"` // json, text
	TracingEnabled    bool    `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate" yaml:"tracing_sample_rate"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint" yaml:"tracing_endpoint"`
}

// MongoDBConfig lists the MongoDB clients of the process, keyed by client name.
// Client names are case-insensitive.
type MongoDBConfig struct {
	Clients            map[string]MongoClientConfig `mapstructure:"clients" yaml:"clients"`
	HealthCheckTimeout time.Duration                `mapstructure:"health_check_timeout" yaml:"health_check_timeout"`
}

// MongoClientConfig configures one MongoDB client.
type MongoClientConfig struct {
	URI   string   `mapstructure:"uri" yaml:"uri"`
	Hosts []string `mapstructure:"hosts" yaml:"hosts"`
	// Credentials uses the form "[mechanism/]source:user:password".
	Credentials            string                `mapstructure:"credentials" yaml:"credentials"`
	AppName                string                `mapstructure:"app_name" yaml:"app_name"`
	ReplicaSet             string                `mapstructure:"replica_set" yaml:"replica_set"`
	ConnectTimeout         time.Duration         `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	ServerSelectionTimeout time.Duration         `mapstructure:"server_selection_timeout" yaml:"server_selection_timeout"`
	MaxPoolSize            uint64                `mapstructure:"max_pool_size" yaml:"max_pool_size"`
	Databases              []MongoDatabaseConfig `mapstructure:"databases" yaml:"databases"`
}

// MongoDatabaseConfig binds a database to the alias repositories resolve it by.
// An empty alias defaults to the database name.
type MongoDatabaseConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Alias string `mapstructure:"alias" yaml:"alias"`
}

// DefaultClientName names the client configured through the MONGODB_URI environment shortcut.
const DefaultClientName = "default"

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "docspec",
			Environment: "production",
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			TracingEnabled:    false,
			TracingSampleRate: 0.1,
			TracingEndpoint:   "localhost:4317",
		},
		MongoDB: MongoDBConfig{
			HealthCheckTimeout: 2 * time.Second,
		},
	}
}
