package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/docspec/pkg/config"
	"github.com/nimburion/docspec/pkg/observability/logger"
)

// NewRegistryFromConfig creates a registry holding every client of cfg. On failure the
// clients created so far are closed.
func NewRegistryFromConfig(ctx context.Context, cfg config.MongoDBConfig, log logger.Logger, opts ...RegistryOption) (*Registry, error) {
	if cfg.HealthCheckTimeout > 0 {
		opts = append([]RegistryOption{WithHealthCheckTimeout(cfg.HealthCheckTimeout)}, opts...)
	}
	r := NewRegistry(log, opts...)

	for _, name := range cfg.ClientNames() {
		if err := r.registerConfigured(ctx, name, cfg.Clients[name]); err != nil {
			return nil, errors.Join(err, r.Close())
		}
	}
	log.Info("MongoDB registry ready", "clients", len(cfg.Clients), "aliases", r.Aliases())
	return r, nil
}

func (r *Registry) registerConfigured(ctx context.Context, name string, client config.MongoClientConfig) error {
	if err := r.RegisterClient(ctx, name, ClientConfigFrom(client)); err != nil {
		return err
	}
	for _, db := range client.Databases {
		if err := r.RegisterDatabase(name, db.Name, db.AliasOrName()); err != nil {
			return fmt.Errorf("client %s: %w", name, err)
		}
	}
	return nil
}

// ClientConfigFrom converts a configured client. Databases are left out; they are
// registered one by one so the same database may carry several aliases.
func ClientConfigFrom(c config.MongoClientConfig) ClientConfig {
	return ClientConfig{
		URI:                    c.URI,
		Hosts:                  c.Hosts,
		Credentials:            c.Credentials,
		AppName:                c.AppName,
		ReplicaSet:             c.ReplicaSet,
		ConnectTimeout:         c.ConnectTimeout,
		ServerSelectionTimeout: c.ServerSelectionTimeout,
		MaxPoolSize:            c.MaxPoolSize,
	}
}
