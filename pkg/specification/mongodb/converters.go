package mongodb

import (
	"fmt"

	"github.com/nimburion/docspec/pkg/specification"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stores do not accept literal boolean filters uniformly, so true and false are expressed
// through the presence of the identity field.
func convertTrue() bson.D {
	return bson.D{{Key: IDField, Value: bson.D{{Key: "$exists", Value: true}}}}
}

func convertFalse() bson.D {
	return bson.D{{Key: IDField, Value: bson.D{{Key: "$exists", Value: false}}}}
}

func absent(field string) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: "$exists", Value: false}}}}
}

func operator(field, op string, value any) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: op, Value: value}}}}
}

func convertIdentity(s specification.Identity, ctx *Context) (bson.D, error) {
	if err := ctx.SetProperty(IDField); err != nil {
		return nil, err
	}
	return operator(IDField, "$eq", s.Expected), nil
}

func convertEqual(s specification.Equal, ctx *Context) (bson.D, error) {
	field, err := ctx.Property()
	if err != nil {
		return nil, err
	}
	if s.Expected == nil {
		return absent(field), nil
	}
	return operator(field, "$eq", s.Expected), nil
}

func convertComparison(op string, expected any, ctx *Context) (bson.D, error) {
	field, err := ctx.Property()
	if err != nil {
		return nil, err
	}
	return operator(field, op, expected), nil
}

func convertString(s specification.StringMatching, ctx *Context) (bson.D, error) {
	field, err := ctx.Property()
	if err != nil {
		return nil, err
	}
	if s.Expected == nil {
		return absent(field), nil
	}
	if s.Options.IsZero() && !s.Wildcard {
		return operator(field, "$eq", *s.Expected), nil
	}
	return operator(field, "$regex", primitive.Regex{
		Pattern: AnchoredPattern(*s.Expected, s.Wildcard, s.Options),
		Options: RegexOptions(s.Options),
	}), nil
}

func (t *Translator) convertAttribute(s specification.Attribute, ctx *Context) (bson.D, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("%w: attribute path is empty", specification.ErrInvalidSpecification)
	}
	if err := ctx.SetProperty(s.Path); err != nil {
		return nil, err
	}
	return t.Translate(s.Inner, ctx)
}

// $not only applies to operator expressions; $nor with a single operand negates any filter.
func (t *Translator) convertNot(s specification.Not, ctx *Context) (bson.D, error) {
	inner, err := t.Translate(s.Inner, ctx)
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: "$nor", Value: bson.A{inner}}}, nil
}

func (t *Translator) convertBranches(op string, operands []specification.Specification, ctx *Context) (bson.D, error) {
	if len(operands) == 0 {
		return nil, fmt.Errorf("%w: %s requires at least one operand", specification.ErrInvalidSpecification, op)
	}
	filters := make(bson.A, 0, len(operands))
	for i, operand := range operands {
		filter, err := t.Translate(operand, ctx.Clone())
		if err != nil {
			return nil, fmt.Errorf("%s operand %d: %w", op, i, err)
		}
		filters = append(filters, filter)
	}
	return bson.D{{Key: op, Value: filters}}, nil
}
