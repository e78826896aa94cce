package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nimburion/docspec/pkg/observability/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	// ErrNotRegistered is returned when a client name or database alias is not configured.
	// It is distinct from driver and network failures.
	ErrNotRegistered = errors.New("mongodb resource not registered")
	// ErrInvalidConfig classifies malformed client configuration.
	ErrInvalidConfig = errors.New("invalid mongodb configuration")
	// ErrClosed is returned once the registry has been closed.
	ErrClosed = errors.New("mongodb registry is closed")
)

// ConnectFunc creates a driver client. It is replaceable for tests.
type ConnectFunc func(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error)

// Registry owns the MongoDB clients of a process and resolves database aliases to handles.
// Build one at startup and pass it to the repositories that need it.
type Registry struct {
	mu        sync.RWMutex
	clients   map[string]*mongo.Client
	databases map[string]*mongo.Database
	owners    map[string]string
	connect   ConnectFunc
	logger    logger.Logger
	timeout   time.Duration
	closed    bool
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithConnectFunc overrides how clients are created.
func WithConnectFunc(fn ConnectFunc) RegistryOption {
	return func(r *Registry) { r.connect = fn }
}

// WithHealthCheckTimeout bounds each client ping of HealthCheck.
func WithHealthCheckTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

func defaultConnect(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	return mongo.Connect(ctx, opts)
}

// NewRegistry creates an empty registry.
func NewRegistry(log logger.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		clients:   make(map[string]*mongo.Client),
		databases: make(map[string]*mongo.Database),
		owners:    make(map[string]string),
		connect:   defaultConnect,
		logger:    log,
		timeout:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterClient creates the client described by cfg and registers its databases.
// The driver connects lazily, so an unreachable server surfaces on first use or HealthCheck.
func (r *Registry) RegisterClient(ctx context.Context, name string, cfg ClientConfig) error {
	if name == "" {
		return fmt.Errorf("%w: client name is required", ErrInvalidConfig)
	}
	opts, err := ClientOptions(name, cfg)
	if err != nil {
		return err
	}

	if err := r.checkClientName(name); err != nil {
		return err
	}

	r.logger.Info("creating MongoDB client", "client", name)
	client, err := r.connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to create mongodb client %s: %w", name, err)
	}

	// The lock was released while connecting: the registry may have been closed or the
	// name taken since the first check.
	r.mu.Lock()
	err = r.checkClientNameLocked(name)
	if err == nil {
		err = r.addClientLocked(name, client, cfg.Databases)
	}
	r.mu.Unlock()
	if err != nil {
		if derr := client.Disconnect(context.WithoutCancel(ctx)); derr != nil {
			r.logger.Warn("unable to close rejected MongoDB client", "client", name, "error", derr)
		}
		return err
	}
	return nil
}

func (r *Registry) checkClientName(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.checkClientNameLocked(name)
}

func (r *Registry) checkClientNameLocked(name string) error {
	if r.closed {
		return ErrClosed
	}
	if _, exists := r.clients[name]; exists {
		return fmt.Errorf("%w: client %s is registered twice", ErrInvalidConfig, name)
	}
	return nil
}

// addClientLocked stores client with all its databases, or nothing when an alias collides.
func (r *Registry) addClientLocked(name string, client *mongo.Client, databases map[string]string) error {
	claimed := make(map[string]string, len(databases))
	for _, dbName := range sortedKeys(databases) {
		alias := aliasOrName(dbName, databases[dbName])
		if err := r.checkAliasLocked(name, alias); err != nil {
			return err
		}
		if other, exists := claimed[alias]; exists {
			return fmt.Errorf("%w: database alias %s of client %s used by databases %s and %s",
				ErrInvalidConfig, alias, name, other, dbName)
		}
		claimed[alias] = dbName
	}
	r.clients[name] = client
	for alias, dbName := range claimed {
		r.databases[alias] = client.Database(dbName)
		r.owners[alias] = name
	}
	return nil
}

func (r *Registry) checkAliasLocked(clientName, alias string) error {
	if owner, exists := r.owners[alias]; exists {
		return fmt.Errorf("%w: database alias %s of client %s already used by client %s",
			ErrInvalidConfig, alias, clientName, owner)
	}
	return nil
}

func aliasOrName(dbName, alias string) string {
	if alias == "" {
		return dbName
	}
	return alias
}

// RegisterDatabase exposes database dbName of client under alias. Aliases are unique
// across all clients.
func (r *Registry) RegisterDatabase(clientName, dbName, alias string) error {
	alias = aliasOrName(dbName, alias)
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[clientName]
	if !ok {
		return fmt.Errorf("%w: mongo client %s", ErrNotRegistered, clientName)
	}
	if err := r.checkAliasLocked(clientName, alias); err != nil {
		return err
	}
	r.databases[alias] = client.Database(dbName)
	r.owners[alias] = clientName
	return nil
}

// Client returns the client registered under name.
func (r *Registry) Client(name string) (*mongo.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: mongo client %s", ErrNotRegistered, name)
	}
	return client, nil
}

// Database returns the database registered under alias.
func (r *Registry) Database(alias string) (*mongo.Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.databases[alias]
	if !ok {
		return nil, fmt.Errorf("%w: database alias %s", ErrNotRegistered, alias)
	}
	return db, nil
}

// Collection resolves collection name in the database registered under alias.
func (r *Registry) Collection(alias, name string) (*mongo.Collection, error) {
	db, err := r.Database(alias)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Aliases lists the registered database aliases.
func (r *Registry) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.owners)
}

// Ping checks that every registered client reaches a primary.
func (r *Registry) Ping(ctx context.Context) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrClosed
	}
	clients := make(map[string]*mongo.Client, len(r.clients))
	for name, client := range r.clients {
		clients[name] = client
	}
	r.mu.RUnlock()

	var errs []error
	for _, name := range sortedKeys(clients) {
		if err := clients[name].Ping(ctx, readpref.Primary()); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// HealthCheck pings every client within the health check timeout.
func (r *Registry) HealthCheck(ctx context.Context) error {
	hcCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.Ping(hcCtx); err != nil {
		r.logger.Error("MongoDB health check failed", "error", err)
		return fmt.Errorf("mongodb health check failed: %w", err)
	}
	return nil
}

// Close disconnects every client. Failures are logged and joined; the registry is emptied
// regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	clients := r.clients
	r.clients = make(map[string]*mongo.Client)
	r.databases = make(map[string]*mongo.Database)
	r.owners = make(map[string]string)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for _, name := range sortedKeys(clients) {
		r.logger.Info("closing MongoDB client", "client", name)
		if err := clients[name].Disconnect(ctx); err != nil {
			r.logger.Error("unable to properly close MongoDB client", "client", name, "error", err)
			errs = append(errs, fmt.Errorf("failed to close mongodb client %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
