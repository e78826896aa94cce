package mongodb

import (
	"context"
	"testing"

	"github.com/nimburion/docspec/pkg/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestRegistry_Integration(t *testing.T) {
	uri := testutil.StartMongoDB(t)
	ctx := context.Background()

	r := newTestRegistry(t)
	if err := r.RegisterClient(ctx, "main", ClientConfig{
		URI:       uri,
		AppName:   "docspec-it",
		Databases: map[string]string{"inventory": "stock"},
	}); err != nil {
		t.Fatalf("RegisterClient() failed: %v", err)
	}

	if err := r.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() failed: %v", err)
	}

	coll, err := r.Collection("stock", "items")
	if err != nil {
		t.Fatalf("Collection() failed: %v", err)
	}
	if coll.Database().Name() != "inventory" {
		t.Errorf("expected database inventory, got %s", coll.Database().Name())
	}
	if _, err := coll.InsertOne(ctx, bson.D{{Key: "_id", Value: 1}, {Key: "sku", Value: "A-1"}}); err != nil {
		t.Fatalf("InsertOne() failed: %v", err)
	}
	n, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil || n != 1 {
		t.Fatalf("CountDocuments() = %d, %v", n, err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := r.HealthCheck(ctx); err == nil {
		t.Fatal("expected HealthCheck to fail on a closed registry")
	}
}
