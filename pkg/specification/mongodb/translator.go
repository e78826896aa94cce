package mongodb

import (
	"fmt"

	"github.com/nimburion/docspec/pkg/specification"
	"go.mongodb.org/mongo-driver/bson"
)

// Translator compiles specifications into MongoDB filters. It holds no state, so one
// instance can serve concurrent callers.
type Translator struct{}

// NewTranslator creates a Translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Translate compiles spec against ctx.
func (t *Translator) Translate(spec specification.Specification, ctx *Context) (bson.D, error) {
	if spec == nil {
		return nil, fmt.Errorf("%w: nil specification", specification.ErrInvalidSpecification)
	}
	if ctx == nil {
		return nil, fmt.Errorf("translation context is required")
	}
	d := &dispatch{translator: t, ctx: ctx}
	if err := spec.Accept(d); err != nil {
		return nil, err
	}
	return d.out, nil
}

// TranslateQuery compiles spec with a fresh root context over query.
func (t *Translator) TranslateQuery(spec specification.Specification, query *Query) (bson.D, error) {
	return t.Translate(spec, NewContext(query))
}

// dispatch routes one node to its converter and keeps the produced filter.
type dispatch struct {
	translator *Translator
	ctx        *Context
	out        bson.D
}

func (d *dispatch) set(filter bson.D, err error) error {
	if err != nil {
		return err
	}
	d.out = filter
	return nil
}

func (d *dispatch) VisitTrue(specification.True) error {
	return d.set(convertTrue(), nil)
}

func (d *dispatch) VisitFalse(specification.False) error {
	return d.set(convertFalse(), nil)
}

func (d *dispatch) VisitIdentity(s specification.Identity) error {
	return d.set(convertIdentity(s, d.ctx))
}

func (d *dispatch) VisitEqual(s specification.Equal) error {
	return d.set(convertEqual(s, d.ctx))
}

func (d *dispatch) VisitGreaterThan(s specification.GreaterThan) error {
	return d.set(convertComparison("$gt", s.Expected, d.ctx))
}

func (d *dispatch) VisitLessThan(s specification.LessThan) error {
	return d.set(convertComparison("$lt", s.Expected, d.ctx))
}

func (d *dispatch) VisitStringMatching(s specification.StringMatching) error {
	return d.set(convertString(s, d.ctx))
}

func (d *dispatch) VisitAttribute(s specification.Attribute) error {
	return d.set(d.translator.convertAttribute(s, d.ctx))
}

func (d *dispatch) VisitNot(s specification.Not) error {
	return d.set(d.translator.convertNot(s, d.ctx))
}

func (d *dispatch) VisitAnd(s specification.And) error {
	return d.set(d.translator.convertBranches("$and", s.Operands, d.ctx))
}

func (d *dispatch) VisitOr(s specification.Or) error {
	return d.set(d.translator.convertBranches("$or", s.Operands, d.ctx))
}
