// Package specification provides an immutable, composable predicate tree describing which
// records a repository query should match. Translators turn a tree into a store-native filter.
package specification

import (
	"errors"
	"fmt"
)

// ErrInvalidSpecification classifies malformed specification trees (empty combinators,
// missing attribute paths, nil children). It is a caller programming error, never transient.
var ErrInvalidSpecification = errors.New("invalid specification")

// Specification is a predicate over a domain object. The variant set is closed: only the
// types declared in this package implement it.
type Specification interface {
	// Accept dispatches the specification to the visitor method of its variant.
	Accept(v Visitor) error
	String() string

	sealed()
}

// Visitor has one method per specification variant. Adding a variant adds a method here,
// so every translator must handle it before the module compiles again.
type Visitor interface {
	VisitTrue(True) error
	VisitFalse(False) error
	VisitIdentity(Identity) error
	VisitAttribute(Attribute) error
	VisitEqual(Equal) error
	VisitGreaterThan(GreaterThan) error
	VisitLessThan(LessThan) error
	VisitStringMatching(StringMatching) error
	VisitNot(Not) error
	VisitAnd(And) error
	VisitOr(Or) error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSpecification, fmt.Sprintf(format, args...))
}

// Validate walks the tree and reports the first structural error found.
func Validate(spec Specification) error {
	if spec == nil {
		return invalid("nil specification")
	}
	switch s := spec.(type) {
	case Attribute:
		if s.Path == "" {
			return invalid("attribute path is empty")
		}
		return Validate(s.Inner)
	case Not:
		return Validate(s.Inner)
	case And:
		return validateOperands("AND", s.Operands)
	case Or:
		return validateOperands("OR", s.Operands)
	}
	return nil
}

func validateOperands(kind string, operands []Specification) error {
	if len(operands) == 0 {
		return invalid("%s requires at least one operand", kind)
	}
	for i, op := range operands {
		if op == nil {
			return invalid("%s operand %d is nil", kind, i)
		}
		if err := Validate(op); err != nil {
			return err
		}
	}
	return nil
}
