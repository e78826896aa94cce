// Package mongodb translates specification trees into MongoDB query filters.
package mongodb

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/nimburion/docspec/pkg/specification"
)

// IDField is the reserved identity field of MongoDB documents.
const IDField = "_id"

// Query is the handle shared by every context of one translation pass.
type Query struct {
	ID         string
	Collection string
}

// NewQuery creates a query handle for collection with a fresh correlation id.
func NewQuery(collection string) *Query {
	return &Query{ID: uuid.NewString(), Collection: collection}
}

// Context carries the attribute binding of one branch of a translation pass. The query
// handle is shared between clones; the binding is copied.
type Context struct {
	query    *Query
	property string
	bound    bool
}

// NewContext creates a root context over query.
func NewContext(query *Query) *Context {
	return &Context{query: query}
}

// Clone returns a context sharing the query handle with an independent copy of the binding.
func (c *Context) Clone() *Context {
	clone := *c
	return &clone
}

// Query returns the shared query handle.
func (c *Context) Query() *Query {
	return c.query
}

// SetProperty binds the attribute path. A context is bound at most once.
func (c *Context) SetProperty(path string) error {
	if c.bound {
		return fmt.Errorf("%w: attribute %q already bound, cannot bind %q",
			specification.ErrInvalidSpecification, c.property, path)
	}
	c.property = path
	c.bound = true
	return nil
}

// Property returns the bound attribute path, failing when nothing is bound.
func (c *Context) Property() (string, error) {
	if !c.bound {
		return "", fmt.Errorf("%w: no attribute bound, wrap the predicate in an attribute",
			specification.ErrInvalidSpecification)
	}
	return c.property, nil
}
