package document

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nimburion/docspec/pkg/repository"
	"github.com/nimburion/docspec/pkg/specification"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type product struct {
	ID          int     `bson:"_id"`
	Designation string  `bson:"designation" validate:"required"`
	Price       float64 `bson:"price" validate:"gte=0"`
}

type fakeCollection struct {
	docs      []any
	findErr   error
	count     int64
	insertErr error
	matched   int64
	deleted   int64

	calls       []string
	filters     []any
	findOpts    *options.FindOptions
	countOpts   []*options.CountOptions
	update      any
	replaceOpts []*options.ReplaceOptions
	inserted    any
}

func (c *fakeCollection) Name() string { return "products" }

func (c *fakeCollection) record(call string, filter any) {
	c.calls = append(c.calls, call)
	c.filters = append(c.filters, filter)
}

func (c *fakeCollection) Find(_ context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.record("find", filter)
	if c.findErr != nil {
		return nil, c.findErr
	}
	if len(opts) > 0 {
		c.findOpts = opts[0]
	}
	return mongo.NewCursorFromDocuments(c.docs, nil, nil)
}

func (c *fakeCollection) FindOne(_ context.Context, filter any, _ ...*options.FindOneOptions) *mongo.SingleResult {
	c.record("find_one", filter)
	if len(c.docs) == 0 {
		return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(c.docs[0], nil, nil)
}

func (c *fakeCollection) CountDocuments(_ context.Context, filter any, opts ...*options.CountOptions) (int64, error) {
	c.record("count", filter)
	c.countOpts = opts
	return c.count, nil
}

func (c *fakeCollection) InsertOne(_ context.Context, document any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.record("insert", nil)
	c.inserted = document
	if c.insertErr != nil {
		return nil, c.insertErr
	}
	return &mongo.InsertOneResult{}, nil
}

func (c *fakeCollection) UpdateOne(_ context.Context, filter, update any, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.record("update", filter)
	c.update = update
	return &mongo.UpdateResult{MatchedCount: c.matched}, nil
}

func (c *fakeCollection) ReplaceOne(_ context.Context, filter, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	c.record("replace", filter)
	c.inserted = replacement
	c.replaceOpts = opts
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

func (c *fakeCollection) DeleteMany(_ context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.record("delete", filter)
	return &mongo.DeleteResult{DeletedCount: c.deleted}, nil
}

func (c *fakeCollection) DropIndexes(context.Context) error {
	c.record("drop_indexes", nil)
	return nil
}

func (c *fakeCollection) Drop(context.Context) error {
	c.record("drop", nil)
	return nil
}

func newProductRepository(t *testing.T, coll *fakeCollection, listener Listener[product]) *MongoRepository[product, int] {
	t.Helper()
	repo, err := NewMongoRepository(Config[product, int]{
		Collection: coll,
		IdentityOf: func(p *product) int { return p.ID },
		Aggregate:  "Product",
		Listener:   listener,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return repo
}

func idFilter(id int) bson.D {
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: id}}}}
}

func TestNewMongoRepository_Validation(t *testing.T) {
	if _, err := NewMongoRepository(Config[product, int]{IdentityOf: func(p *product) int { return p.ID }}); err == nil {
		t.Fatal("expected an error without collection")
	}
	if _, err := NewMongoRepository(Config[product, int]{Collection: &fakeCollection{}}); err == nil {
		t.Fatal("expected an error without identity function")
	}
}

func TestGet_IsLazyAndTranslatesOptions(t *testing.T) {
	coll := &fakeCollection{docs: []any{
		product{ID: 1, Designation: "product1", Price: 2},
		product{ID: 2, Designation: "product2", Price: 2},
	}}
	repo := newProductRepository(t, coll, nil)

	stream, err := repo.Get(context.Background(),
		specification.Attr("price", specification.Eq(2.0)),
		repository.Offset(1), repository.Limit(5),
		repository.Sort().Add("price", repository.Ascending).Add("url", repository.Descending))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coll.calls) != 0 {
		t.Fatal("query executed before iteration")
	}

	got, err := stream.Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Designation != "product1" || got[1].ID != 2 {
		t.Fatalf("unexpected aggregates: %+v", got)
	}

	wantFilter := bson.D{{Key: "price", Value: bson.D{{Key: "$eq", Value: 2.0}}}}
	if !reflect.DeepEqual(coll.filters[0], wantFilter) {
		t.Fatalf("filter = %v, want %v", coll.filters[0], wantFilter)
	}
	if *coll.findOpts.Skip != 1 || *coll.findOpts.Limit != 5 {
		t.Fatalf("unexpected skip/limit: %d/%d", *coll.findOpts.Skip, *coll.findOpts.Limit)
	}
	wantSort := bson.D{{Key: "price", Value: 1}, {Key: "url", Value: -1}}
	if !reflect.DeepEqual(coll.findOpts.Sort, wantSort) {
		t.Fatalf("sort = %v, want %v", coll.findOpts.Sort, wantSort)
	}
}

func TestGet_ConfigurationErrorsFailBeforeExecution(t *testing.T) {
	coll := &fakeCollection{}
	repo := newProductRepository(t, coll, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		spec specification.Specification
		opts []repository.Option
	}{
		{name: "nil specification", spec: nil},
		{name: "unbound comparison", spec: specification.Gt(2)},
		{name: "empty conjunction", spec: specification.Attr("price", specification.AllOf())},
		{name: "offset too large", spec: specification.Any(), opts: []repository.Option{repository.Offset(math.MaxInt32 + 1)}},
		{name: "limit too large", spec: specification.Any(), opts: []repository.Option{repository.Limit(math.MaxInt64)}},
		{name: "unknown direction", spec: specification.Any(), opts: []repository.Option{repository.Sort().Add("price", "SIDEWAYS")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Get(ctx, tt.spec, tt.opts...)
			if !repository.IsConfigurationError(err) {
				t.Fatalf("expected a configuration error, got %v", err)
			}
		})
	}
	if len(coll.calls) != 0 {
		t.Fatalf("no query may run on configuration errors, got %v", coll.calls)
	}
}

func TestGet_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("server selection timeout")
	repo := newProductRepository(t, &fakeCollection{findErr: boom}, nil)

	stream, err := repo.Get(context.Background(), specification.Any())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := stream.Collect(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	coll := &fakeCollection{docs: []any{product{ID: 3, Designation: "product3", Price: 2}}}
	repo := newProductRepository(t, coll, nil)

	got, found, err := repo.GetByID(context.Background(), 3)
	if err != nil || !found || got.Designation != "product3" {
		t.Fatalf("GetByID() = %+v, %v, %v", got, found, err)
	}
	if !reflect.DeepEqual(coll.filters[0], idFilter(3)) {
		t.Fatalf("filter = %v", coll.filters[0])
	}

	coll.docs = nil
	got, found, err = repo.GetByID(context.Background(), 42)
	if err != nil || found || got != nil {
		t.Fatalf("missing aggregate must be reported through the boolean, got %+v, %v, %v", got, found, err)
	}
	if ok, err := repo.ContainsID(context.Background(), 42); err != nil || ok {
		t.Fatalf("ContainsID() = %v, %v", ok, err)
	}
}

func TestContains_StopsAtFirstMatch(t *testing.T) {
	coll := &fakeCollection{count: 1}
	repo := newProductRepository(t, coll, nil)

	ok, err := repo.Contains(context.Background(), specification.Attr("designation", specification.EqualString("product1")))
	if err != nil || !ok {
		t.Fatalf("Contains() = %v, %v", ok, err)
	}
	if len(coll.countOpts) != 1 || coll.countOpts[0].Limit == nil || *coll.countOpts[0].Limit != 1 {
		t.Fatal("Contains must cap the count at one")
	}

	coll.count = 7
	n, err := repo.Count(context.Background(), specification.Any())
	if err != nil || n != 7 {
		t.Fatalf("Count() = %d, %v", n, err)
	}
	if len(coll.countOpts) != 0 {
		t.Fatal("Count must not cap the count")
	}
	if n, err := repo.Size(context.Background()); err != nil || n != 7 {
		t.Fatalf("Size() = %d, %v", n, err)
	}
	if !reflect.DeepEqual(coll.filters[len(coll.filters)-1], bson.D{}) {
		t.Fatal("Size must count without filter")
	}
}

func TestAdd(t *testing.T) {
	coll := &fakeCollection{}
	repo := newProductRepository(t, coll, nil)

	if err := repo.Add(context.Background(), &product{ID: 1, Designation: "product1", Price: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := coll.inserted.(bson.Raw)
	if !ok {
		t.Fatalf("inserted document has type %T", coll.inserted)
	}
	if raw.Lookup("_id").Int32() != 1 || raw.Lookup("designation").StringValue() != "product1" {
		t.Fatalf("unexpected document %s", raw)
	}

	coll.insertErr = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	err := repo.Add(context.Background(), &product{ID: 1, Designation: "product1"})
	if !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatal("the driver error must stay reachable")
	}
}

func TestAdd_ValidatingListenerAbortsPersist(t *testing.T) {
	coll := &fakeCollection{}
	repo := newProductRepository(t, coll, NewValidatingListener[product]())

	err := repo.Add(context.Background(), &product{ID: 1, Price: -1})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(coll.calls) != 0 {
		t.Fatalf("nothing may be written after a failed pre-persist hook, got %v", coll.calls)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("missing aggregate", func(t *testing.T) {
		repo := newProductRepository(t, &fakeCollection{count: 0}, nil)
		if _, err := repo.Update(ctx, &product{ID: 9, Designation: "x"}); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("shared identity", func(t *testing.T) {
		repo := newProductRepository(t, &fakeCollection{count: 2}, nil)
		if _, err := repo.Update(ctx, &product{ID: 9, Designation: "x"}); !errors.Is(err, repository.ErrInvariantViolation) {
			t.Fatalf("expected ErrInvariantViolation, got %v", err)
		}
	})

	t.Run("merge", func(t *testing.T) {
		coll := &fakeCollection{count: 1, matched: 1}
		repo := newProductRepository(t, coll, nil)
		in := &product{ID: 9, Designation: "renamed", Price: 4}
		out, err := repo.Update(ctx, in)
		if err != nil || out != in {
			t.Fatalf("Update() = %+v, %v", out, err)
		}
		update := coll.update.(bson.D)
		if update[0].Key != "$set" {
			t.Fatalf("expected a $set update, got %v", update)
		}
		for _, e := range update[0].Value.(bson.D) {
			if e.Key == "_id" {
				t.Fatal("the identity must not be part of the merged fields")
			}
		}
		if !reflect.DeepEqual(coll.filters[len(coll.filters)-1], idFilter(9)) {
			t.Fatalf("unexpected update filter %v", coll.filters[len(coll.filters)-1])
		}
	})
}

func TestAddOrUpdate_Upserts(t *testing.T) {
	coll := &fakeCollection{}
	repo := newProductRepository(t, coll, nil)

	if _, err := repo.AddOrUpdate(context.Background(), &product{ID: 5, Designation: "product5"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(coll.replaceOpts) != 1 || coll.replaceOpts[0].Upsert == nil || !*coll.replaceOpts[0].Upsert {
		t.Fatal("AddOrUpdate must upsert")
	}
}

func TestRemoveByID_Cardinality(t *testing.T) {
	tests := []struct {
		deleted int64
		want    error
	}{
		{deleted: 0, want: repository.ErrNotFound},
		{deleted: 1, want: nil},
		{deleted: 2, want: repository.ErrInvariantViolation},
	}
	for _, tt := range tests {
		coll := &fakeCollection{deleted: tt.deleted}
		repo := newProductRepository(t, coll, nil)
		err := repo.RemoveByID(context.Background(), 1)
		if tt.want == nil && err != nil || tt.want != nil && !errors.Is(err, tt.want) {
			t.Fatalf("deleted=%d: RemoveByID() error = %v, want %v", tt.deleted, err, tt.want)
		}
	}
}

func TestRemove_ReturnsDeletedCount(t *testing.T) {
	coll := &fakeCollection{deleted: 0}
	repo := newProductRepository(t, coll, nil)

	n, err := repo.Remove(context.Background(), specification.Attr("price", specification.Gt(100)))
	if err != nil || n != 0 {
		t.Fatalf("Remove() = %d, %v; matching nothing is not an error", n, err)
	}
}

func TestClear_DropsIndexesThenCollection(t *testing.T) {
	coll := &fakeCollection{}
	repo := newProductRepository(t, coll, nil)

	if err := repo.Clear(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(coll.calls, []string{"drop_indexes", "drop"}) {
		t.Fatalf("calls = %v", coll.calls)
	}
}

type recordingListener struct {
	BaseListener[product]
	events []string
}

func (l *recordingListener) PrePersist(_ context.Context, p *product, doc bson.Raw) error {
	l.events = append(l.events, "pre-persist:"+doc.Lookup("designation").StringValue())
	return nil
}

func (l *recordingListener) PostPersist(_ context.Context, p *product, _ bson.Raw) error {
	l.events = append(l.events, "post-persist:"+p.Designation)
	return nil
}

func (l *recordingListener) PreLoad(_ context.Context, p *product, _ bson.Raw) error {
	l.events = append(l.events, "pre-load:"+p.Designation)
	return nil
}

func (l *recordingListener) PostLoad(_ context.Context, p *product, _ bson.Raw) error {
	l.events = append(l.events, "post-load:"+p.Designation)
	return nil
}

func TestListener_HooksRunOncePerPhase(t *testing.T) {
	listener := &recordingListener{}
	coll := &fakeCollection{docs: []any{product{ID: 1, Designation: "stored"}}}
	repo := newProductRepository(t, coll, listener)
	ctx := context.Background()

	if err := repo.Add(ctx, &product{ID: 2, Designation: "new"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := repo.GetByID(ctx, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"pre-persist:new", "post-persist:new", "pre-load:", "post-load:stored"}
	if !reflect.DeepEqual(listener.events, want) {
		t.Fatalf("events = %v, want %v", listener.events, want)
	}
}

func TestFindOptions(t *testing.T) {
	opts, err := FindOptions()
	if err != nil || opts.Skip != nil || opts.Limit != nil || opts.Sort != nil {
		t.Fatalf("no option must leave the driver defaults, got %+v, %v", opts, err)
	}

	opts, err = FindOptions(repository.Offset(math.MaxInt32), repository.Limit(0))
	if err != nil || *opts.Skip != math.MaxInt32 || *opts.Limit != 0 {
		t.Fatalf("bounds must be inclusive, got %+v, %v", opts, err)
	}

	for _, bad := range []repository.Option{repository.Offset(-1), repository.Limit(-1), repository.Sort().Add("", repository.Ascending), nil} {
		if _, err := FindOptions(bad); !errors.Is(err, repository.ErrInvalidOption) {
			t.Fatalf("FindOptions(%v) expected ErrInvalidOption, got %v", bad, err)
		}
	}
}
