// Package document implements the repository contract over MongoDB collections.
package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/docspec/pkg/observability/logger"
	"github.com/nimburion/docspec/pkg/observability/metrics"
	"github.com/nimburion/docspec/pkg/observability/tracing"
	"github.com/nimburion/docspec/pkg/repository"
	"github.com/nimburion/docspec/pkg/specification"
	mongospec "github.com/nimburion/docspec/pkg/specification/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dbSystem = "mongodb"

// Config configures a MongoRepository.
type Config[T any, ID comparable] struct {
	// Collection stores the aggregates. Required.
	Collection Collection
	// IdentityOf returns the identity of an aggregate, persisted as _id. Required.
	IdentityOf func(*T) ID
	// Aggregate names the aggregate in errors. Defaults to the collection name.
	Aggregate string
	// Database is reported on spans.
	Database string
	Listener Listener[T]
	Logger   logger.Logger
}

// MongoRepository implements repository.Repository over one collection. Aggregates are
// encoded with their bson struct tags. It is safe for concurrent use; every call translates
// its specification with its own context.
type MongoRepository[T any, ID comparable] struct {
	collection Collection
	identityOf func(*T) ID
	aggregate  string
	database   string
	listener   Listener[T]
	translator *mongospec.Translator
	logger     logger.Logger
}

var _ repository.Repository[struct{}, string] = (*MongoRepository[struct{}, string])(nil)

// NewMongoRepository creates a repository from cfg.
func NewMongoRepository[T any, ID comparable](cfg Config[T, ID]) (*MongoRepository[T, ID], error) {
	if cfg.Collection == nil {
		return nil, errors.New("collection is required")
	}
	if cfg.IdentityOf == nil {
		return nil, errors.New("identity function is required")
	}
	r := &MongoRepository[T, ID]{
		collection: cfg.Collection,
		identityOf: cfg.IdentityOf,
		aggregate:  cfg.Aggregate,
		database:   cfg.Database,
		listener:   cfg.Listener,
		translator: mongospec.NewTranslator(),
		logger:     cfg.Logger,
	}
	if r.aggregate == "" {
		r.aggregate = cfg.Collection.Name()
	}
	if r.listener == nil {
		r.listener = BaseListener[T]{}
	}
	if r.logger == nil {
		r.logger = logger.NewNop()
	}
	r.logger = r.logger.With("collection", cfg.Collection.Name())
	return r, nil
}

// Get translates spec immediately and returns a stream that runs the query on its first Next.
func (r *MongoRepository[T, ID]) Get(ctx context.Context, spec specification.Specification, opts ...repository.Option) (*repository.Stream[T], error) {
	find, err := FindOptions(opts...)
	if err != nil {
		return nil, err
	}
	query, filter, err := r.translate(ctx, spec)
	if err != nil {
		return nil, err
	}

	open := func(ctx context.Context) (_ repository.Cursor, err error) {
		ctx = logger.ContextWithQueryID(ctx, query.ID)
		ctx, done := r.begin(ctx, "get", tracing.SpanOperationDBQuery,
			tracing.WithQueryID(query.ID), tracing.WithDBStatement(renderFilter(filter)))
		defer done(&err)

		cursor, err := r.collection.Find(ctx, filter, find)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", r.aggregate, err)
		}
		metrics.CursorOpened()
		return &trackedCursor{Cursor: cursor}, nil
	}
	return repository.NewStream(open, r.decodeCurrent), nil
}

// GetByID loads the aggregate identified by id.
func (r *MongoRepository[T, ID]) GetByID(ctx context.Context, id ID) (_ *T, _ bool, err error) {
	ctx, done := r.begin(ctx, "get_by_id", tracing.SpanOperationDBQuery)
	defer done(&err)

	filter, err := r.identityFilter(ctx, id)
	if err != nil {
		return nil, false, err
	}
	raw, err := r.collection.FindOne(ctx, filter).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s %v: %w", r.aggregate, id, err)
	}
	entity, err := r.load(ctx, raw)
	if err != nil {
		return nil, false, err
	}
	return entity, true, nil
}

// Contains reports whether at least one aggregate matches spec. The count stops at the
// first match.
func (r *MongoRepository[T, ID]) Contains(ctx context.Context, spec specification.Specification) (_ bool, err error) {
	ctx, done := r.begin(ctx, "contains", tracing.SpanOperationDBCount)
	defer done(&err)

	filter, err := r.filterFor(ctx, spec)
	if err != nil {
		return false, err
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to count %s: %w", r.aggregate, err)
	}
	return n > 0, nil
}

// ContainsID reports whether the aggregate identified by id exists.
func (r *MongoRepository[T, ID]) ContainsID(ctx context.Context, id ID) (bool, error) {
	_, found, err := r.GetByID(ctx, id)
	return found, err
}

// Count returns the number of aggregates matching spec.
func (r *MongoRepository[T, ID]) Count(ctx context.Context, spec specification.Specification) (_ int64, err error) {
	ctx, done := r.begin(ctx, "count", tracing.SpanOperationDBCount)
	defer done(&err)

	filter, err := r.filterFor(ctx, spec)
	if err != nil {
		return 0, err
	}
	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.aggregate, err)
	}
	return n, nil
}

// Size returns the number of stored aggregates.
func (r *MongoRepository[T, ID]) Size(ctx context.Context) (_ int64, err error) {
	ctx, done := r.begin(ctx, "size", tracing.SpanOperationDBCount)
	defer done(&err)

	n, err := r.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.aggregate, err)
	}
	return n, nil
}

// Add inserts entity. An identity collision fails with repository.ErrAlreadyExists.
func (r *MongoRepository[T, ID]) Add(ctx context.Context, entity *T) (err error) {
	if entity == nil {
		return fmt.Errorf("cannot add a nil %s", r.aggregate)
	}
	ctx, done := r.begin(ctx, "add", tracing.SpanOperationDBInsert)
	defer done(&err)

	doc, err := r.encode(ctx, entity)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: aggregate %s identified with %v: %w",
				repository.ErrAlreadyExists, r.aggregate, r.identityOf(entity), err)
		}
		return fmt.Errorf("failed to insert %s: %w", r.aggregate, err)
	}
	return r.listener.PostPersist(ctx, entity, doc)
}

// Update merges the fields of entity into the stored aggregate sharing its identity.
func (r *MongoRepository[T, ID]) Update(ctx context.Context, entity *T) (_ *T, err error) {
	if entity == nil {
		return nil, fmt.Errorf("cannot update a nil %s", r.aggregate)
	}
	ctx, done := r.begin(ctx, "update", tracing.SpanOperationDBUpdate)
	defer done(&err)

	id := r.identityOf(entity)
	filter, err := r.identityFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(2))
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s %v: %w", r.aggregate, id, err)
	}
	switch {
	case n == 0:
		return nil, repository.NotFoundError(r.aggregate, id, "updated")
	case n > 1:
		return nil, repository.InvariantError(r.aggregate, id, "more than one stored aggregate shares this identity")
	}

	doc, err := r.encode(ctx, entity)
	if err != nil {
		return nil, err
	}
	fields, err := withoutIdentity(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare %s update: %w", r.aggregate, err)
	}
	if len(fields) > 0 {
		res, err := r.collection.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: fields}})
		if err != nil {
			return nil, fmt.Errorf("failed to update %s %v: %w", r.aggregate, id, err)
		}
		if res.MatchedCount == 0 {
			return nil, repository.NotFoundError(r.aggregate, id, "updated")
		}
	}
	if err := r.listener.PostPersist(ctx, entity, doc); err != nil {
		return nil, err
	}
	return entity, nil
}

// AddOrUpdate replaces the aggregate sharing the identity of entity, inserting it if absent.
func (r *MongoRepository[T, ID]) AddOrUpdate(ctx context.Context, entity *T) (_ *T, err error) {
	if entity == nil {
		return nil, fmt.Errorf("cannot save a nil %s", r.aggregate)
	}
	ctx, done := r.begin(ctx, "add_or_update", tracing.SpanOperationDBUpdate)
	defer done(&err)

	id := r.identityOf(entity)
	filter, err := r.identityFilter(ctx, id)
	if err != nil {
		return nil, err
	}
	doc, err := r.encode(ctx, entity)
	if err != nil {
		return nil, err
	}
	if _, err := r.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true)); err != nil {
		return nil, fmt.Errorf("failed to save %s %v: %w", r.aggregate, id, err)
	}
	if err := r.listener.PostPersist(ctx, entity, doc); err != nil {
		return nil, err
	}
	return entity, nil
}

// Remove deletes every aggregate matching spec. Matching nothing is not an error.
func (r *MongoRepository[T, ID]) Remove(ctx context.Context, spec specification.Specification) (_ int64, err error) {
	ctx, done := r.begin(ctx, "remove", tracing.SpanOperationDBDelete)
	defer done(&err)

	filter, err := r.filterFor(ctx, spec)
	if err != nil {
		return 0, err
	}
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to remove %s: %w", r.aggregate, err)
	}
	return res.DeletedCount, nil
}

// RemoveByID deletes the aggregate identified by id. It fails with repository.ErrNotFound
// when nothing was deleted and with repository.ErrInvariantViolation when several were.
func (r *MongoRepository[T, ID]) RemoveByID(ctx context.Context, id ID) (err error) {
	ctx, done := r.begin(ctx, "remove_by_id", tracing.SpanOperationDBDelete)
	defer done(&err)

	filter, err := r.identityFilter(ctx, id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to remove %s %v: %w", r.aggregate, id, err)
	}
	switch {
	case res.DeletedCount == 0:
		return repository.NotFoundError(r.aggregate, id, "removed")
	case res.DeletedCount > 1:
		return repository.InvariantError(r.aggregate, id,
			fmt.Sprintf("%d aggregates sharing this identity have been removed", res.DeletedCount))
	}
	return nil
}

// Clear drops the indexes then the collection.
func (r *MongoRepository[T, ID]) Clear(ctx context.Context) (err error) {
	ctx, done := r.begin(ctx, "clear", tracing.SpanOperationDBDrop)
	defer done(&err)

	r.logger.WithContext(ctx).Warn("dropping collection")
	if err := r.collection.DropIndexes(ctx); err != nil {
		return fmt.Errorf("failed to drop %s indexes: %w", r.aggregate, err)
	}
	if err := r.collection.Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop %s collection: %w", r.aggregate, err)
	}
	return nil
}

// begin opens the span of one operation. The returned func ends it and records metrics
// with the final error.
func (r *MongoRepository[T, ID]) begin(ctx context.Context, operation string, kind tracing.SpanOperation, opts ...tracing.DatabaseSpanOption) (context.Context, func(*error)) {
	start := time.Now()
	name := r.collection.Name()
	opts = append(opts, tracing.WithDBSystem(dbSystem), tracing.WithDBCollection(name))
	if r.database != "" {
		opts = append(opts, tracing.WithDBName(r.database))
	}
	ctx, span := tracing.StartDatabaseSpan(ctx, kind, opts...)
	return ctx, func(errp *error) {
		err := *errp
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			r.logger.WithContext(ctx).Error("document operation failed", "operation", operation, "error", err)
		}
		tracing.End(span, err)
		metrics.RecordDocumentOperation(name, operation, err, time.Since(start))
	}
}

// translate compiles spec with a fresh query handle and logs the filter.
func (r *MongoRepository[T, ID]) translate(ctx context.Context, spec specification.Specification) (*mongospec.Query, bson.D, error) {
	query := mongospec.NewQuery(r.collection.Name())
	filter, err := r.translator.TranslateQuery(spec, query)
	if err != nil {
		return nil, nil, err
	}
	r.logger.WithContext(logger.ContextWithQueryID(ctx, query.ID)).Debug("querying collection",
		"specification", spec.String(), "filter", renderFilter(filter))
	return query, filter, nil
}

// filterFor translates spec inside the span of the current operation.
func (r *MongoRepository[T, ID]) filterFor(ctx context.Context, spec specification.Specification) (bson.D, error) {
	query, filter, err := r.translate(ctx, spec)
	if err != nil {
		return nil, err
	}
	tracing.AnnotateDatabaseSpan(ctx, tracing.WithQueryID(query.ID), tracing.WithDBStatement(renderFilter(filter)))
	return filter, nil
}

func (r *MongoRepository[T, ID]) identityFilter(ctx context.Context, id ID) (bson.D, error) {
	return r.filterFor(ctx, specification.ID(id))
}

// encode marshals entity and runs the pre-persist hook.
func (r *MongoRepository[T, ID]) encode(ctx context.Context, entity *T) (bson.Raw, error) {
	data, err := bson.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", r.aggregate, err)
	}
	doc := bson.Raw(data)
	if err := r.listener.PrePersist(ctx, entity, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *MongoRepository[T, ID]) decodeCurrent(ctx context.Context, cursor repository.Cursor) (*T, error) {
	var raw bson.Raw
	if err := cursor.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to read %s document: %w", r.aggregate, err)
	}
	return r.load(ctx, raw)
}

// load decodes raw between the load hooks.
func (r *MongoRepository[T, ID]) load(ctx context.Context, raw bson.Raw) (*T, error) {
	entity := new(T)
	if err := r.listener.PreLoad(ctx, entity, raw); err != nil {
		return nil, err
	}
	if err := bson.Unmarshal(raw, entity); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.aggregate, err)
	}
	if err := r.listener.PostLoad(ctx, entity, raw); err != nil {
		return nil, err
	}
	return entity, nil
}

func withoutIdentity(doc bson.Raw) (bson.D, error) {
	elements, err := doc.Elements()
	if err != nil {
		return nil, err
	}
	fields := make(bson.D, 0, len(elements))
	for _, e := range elements {
		if e.Key() == mongospec.IDField {
			continue
		}
		fields = append(fields, bson.E{Key: e.Key(), Value: e.Value()})
	}
	return fields, nil
}

// renderFilter formats filter as relaxed extended JSON for logs and spans.
func renderFilter(filter bson.D) string {
	out, err := bson.MarshalExtJSON(filter, false, false)
	if err != nil {
		return fmt.Sprint(filter)
	}
	return string(out)
}

// trackedCursor keeps the open cursors gauge in sync.
type trackedCursor struct {
	repository.Cursor
	closed bool
}

func (c *trackedCursor) Close(ctx context.Context) error {
	if !c.closed {
		c.closed = true
		metrics.CursorClosed()
	}
	return c.Cursor.Close(ctx)
}
