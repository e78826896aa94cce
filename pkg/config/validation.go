package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"
)

const redactedValue = "***"

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"json", "text"}
)

// Validate checks if the configuration is valid. Every problem is reported.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(validLogLevels, c.Observability.LogLevel) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %s (must be one of: %v)",
			c.Observability.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.Observability.LogFormat) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %s (must be one of: %v)",
			c.Observability.LogFormat, validLogFormats))
	}
	if c.Observability.TracingEnabled {
		if strings.TrimSpace(c.Observability.TracingEndpoint) == "" {
			errs = append(errs, errors.New("observability.tracing_endpoint is required when tracing is enabled"))
		}
		if rate := c.Observability.TracingSampleRate; rate < 0 || rate > 1 {
			errs = append(errs, fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1, got %v", rate))
		}
	}

	if c.MongoDB.HealthCheckTimeout < 0 {
		errs = append(errs, errors.New("mongodb.health_check_timeout must not be negative"))
	}

	owners := make(map[string]string)
	for _, name := range c.MongoDB.ClientNames() {
		client := c.MongoDB.Clients[name]
		prefix := "mongodb.clients." + name
		if client.URI == "" && len(client.Hosts) == 0 {
			errs = append(errs, fmt.Errorf("%s requires uri or hosts", prefix))
		}
		if client.URI != "" && len(client.Hosts) > 0 {
			errs = append(errs, fmt.Errorf("%s must not set both uri and hosts", prefix))
		}
		if len(client.Databases) == 0 {
			errs = append(errs, fmt.Errorf("%s.databases must contain at least one database", prefix))
		}
		for index, db := range client.Databases {
			if strings.TrimSpace(db.Name) == "" {
				errs = append(errs, fmt.Errorf("%s.databases[%d].name is required", prefix, index))
				continue
			}
			alias := db.AliasOrName()
			if owner, taken := owners[alias]; taken {
				errs = append(errs, fmt.Errorf("%s.databases[%d] alias %q is already used by client %s",
					prefix, index, alias, owner))
				continue
			}
			owners[alias] = name
		}
	}

	return errors.Join(errs...)
}

// ClientNames returns the configured client names in a stable order.
func (c MongoDBConfig) ClientNames() []string {
	names := make([]string, 0, len(c.Clients))
	for name := range c.Clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AliasOrName returns the alias, or the database name when no alias is set.
func (d MongoDatabaseConfig) AliasOrName() string {
	if alias := strings.TrimSpace(d.Alias); alias != "" {
		return alias
	}
	return strings.TrimSpace(d.Name)
}

// Redacted returns a copy of the configuration with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	if c.MongoDB.Clients == nil {
		return &out
	}
	out.MongoDB.Clients = make(map[string]MongoClientConfig, len(c.MongoDB.Clients))
	for name, client := range c.MongoDB.Clients {
		client.URI = redactURI(client.URI)
		client.Credentials = redactCredentials(client.Credentials)
		client.Hosts = slices.Clone(client.Hosts)
		client.Databases = slices.Clone(client.Databases)
		out.MongoDB.Clients[name] = client
	}
	return &out
}

func redactURI(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redactedValue
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), redactedValue)
		// url escapes the mask inside userinfo.
		return strings.Replace(u.String(), url.QueryEscape(redactedValue), redactedValue, 1)
	}
	return raw
}

// redactCredentials masks the password of "[mechanism/]source:user:password".
func redactCredentials(credential string) string {
	if credential == "" {
		return credential
	}
	elements := strings.SplitN(credential, ":", 3)
	if len(elements) != 3 {
		return redactedValue
	}
	return elements[0] + ":" + elements[1] + ":" + redactedValue
}
