package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nimburion/docspec/pkg/config"
	"github.com/nimburion/docspec/pkg/observability/logger"
	"github.com/nimburion/docspec/pkg/observability/tracing"
	"github.com/nimburion/docspec/pkg/repository/document"
	mongospec "github.com/nimburion/docspec/pkg/specification/mongodb"
	"github.com/nimburion/docspec/pkg/store"
	"github.com/nimburion/docspec/pkg/store/mongodb"
	"github.com/nimburion/docspec/pkg/version"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNoClients is returned by commands that need MongoDB when none is configured.
var ErrNoClients = errors.New("no mongodb client configured (set mongodb.clients or the MONGODB_URI environment variable)")

// runtime holds the resources of one command execution.
type runtime struct {
	log      logger.Logger
	registry *mongodb.Registry
	tracer   *tracing.TracerProvider
	stores   []store.Adapter
}

func openRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*runtime, error) {
	if len(cfg.MongoDB.Clients) == 0 {
		return nil, ErrNoClients
	}
	tracer, err := tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: version.Current(cfg.Service.Name).Version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Enabled:        cfg.Observability.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}
	registry, err := mongodb.NewRegistryFromConfig(ctx, cfg.MongoDB, log)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create mongodb registry: %w", err), tracer.Shutdown(ctx))
	}
	return &runtime{log: log, registry: registry, tracer: tracer, stores: []store.Adapter{registry}}, nil
}

func (rt *runtime) close(ctx context.Context) {
	var errs []error
	for i := len(rt.stores) - 1; i >= 0; i-- {
		errs = append(errs, rt.stores[i].Close())
	}
	if err := errors.Join(append(errs, rt.tracer.Shutdown(ctx))...); err != nil {
		rt.log.Warn("failed to release resources", "error", err)
	}
}

// documents opens a repository of raw documents over collection. An empty alias selects
// the only registered database.
func (rt *runtime) documents(alias, collection string) (*document.MongoRepository[bson.D, any], error) {
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("--collection is required")
	}
	if alias == "" {
		aliases := rt.registry.Aliases()
		if len(aliases) != 1 {
			return nil, fmt.Errorf("--db is required when several databases are registered: %s",
				strings.Join(aliases, ", "))
		}
		alias = aliases[0]
	}
	coll, err := rt.registry.Collection(alias, collection)
	if err != nil {
		return nil, err
	}
	return document.NewMongoRepository(document.Config[bson.D, any]{
		Collection: document.WrapCollection(coll),
		IdentityOf: documentID,
		Database:   coll.Database().Name(),
		Logger:     rt.log,
	})
}

func documentID(doc *bson.D) any {
	for _, e := range *doc {
		if e.Key == mongospec.IDField {
			return e.Value
		}
	}
	return nil
}
