package document

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// namespaceNotFound is the server error code for a missing collection.
const namespaceNotFound = 26

// Collection is the part of the driver collection API a MongoRepository executes against.
// WrapCollection adapts a *mongo.Collection.
type Collection interface {
	Name() string
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error)
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	ReplaceOne(ctx context.Context, filter, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	// DropIndexes drops every index except the identity index.
	DropIndexes(ctx context.Context) error
	Drop(ctx context.Context) error
}

type mongoCollection struct {
	*mongo.Collection
}

// WrapCollection adapts a driver collection to Collection.
func WrapCollection(c *mongo.Collection) Collection {
	return mongoCollection{Collection: c}
}

func (c mongoCollection) DropIndexes(ctx context.Context) error {
	_, err := c.Indexes().DropAll(ctx)
	var cmdErr mongo.CommandError
	if err != nil && errors.As(err, &cmdErr) && cmdErr.HasErrorCode(namespaceNotFound) {
		return nil
	}
	return err
}
