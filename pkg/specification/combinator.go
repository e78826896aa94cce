package specification

import "strings"

// Attribute scopes Inner to the field at Path. Nested fields use dots ("pictures.url.url").
type Attribute struct {
	Path  string
	Inner Specification
}

// Not negates Inner.
type Not struct {
	Inner Specification
}

// And matches when every operand matches.
type And struct {
	Operands []Specification
}

// Or matches when at least one operand matches.
type Or struct {
	Operands []Specification
}

// Attr scopes inner to the attribute at path.
func Attr(path string, inner Specification) Specification {
	return Attribute{Path: path, Inner: inner}
}

// NotOf negates spec.
func NotOf(spec Specification) Specification { return Not{Inner: spec} }

// AllOf combines specs with a conjunction. The slice is copied.
func AllOf(specs ...Specification) Specification {
	return And{Operands: append([]Specification(nil), specs...)}
}

// AnyOf combines specs with a disjunction. The slice is copied.
func AnyOf(specs ...Specification) Specification {
	return Or{Operands: append([]Specification(nil), specs...)}
}

func (s Attribute) Accept(v Visitor) error { return v.VisitAttribute(s) }
func (s Not) Accept(v Visitor) error       { return v.VisitNot(s) }
func (s And) Accept(v Visitor) error       { return v.VisitAnd(s) }
func (s Or) Accept(v Visitor) error        { return v.VisitOr(s) }

func (s Attribute) String() string { return s.Path + " " + stringOf(s.Inner) }
func (s Not) String() string       { return "NOT (" + stringOf(s.Inner) + ")" }
func (s And) String() string       { return joinOperands(s.Operands, " AND ") }
func (s Or) String() string        { return joinOperands(s.Operands, " OR ") }

func (Attribute) sealed() {}
func (Not) sealed()       {}
func (And) sealed()       {}
func (Or) sealed()        {}

func stringOf(spec Specification) string {
	if spec == nil {
		return "<nil>"
	}
	return spec.String()
}

func joinOperands(operands []Specification, sep string) string {
	parts := make([]string, len(operands))
	for i, op := range operands {
		parts[i] = stringOf(op)
	}
	return "(" + strings.Join(parts, sep) + ")"
}
