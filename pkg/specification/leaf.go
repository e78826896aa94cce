package specification

import "fmt"

// True matches every record.
type True struct{}

// False matches no record.
type False struct{}

// Identity matches the record whose identity equals Expected.
type Identity struct {
	Expected any
}

// Equal matches when the current attribute equals Expected. A nil Expected means the
// attribute is absent.
type Equal struct {
	Expected any
}

// GreaterThan matches when the current attribute is strictly greater than Expected.
type GreaterThan struct {
	Expected any
}

// LessThan matches when the current attribute is strictly lower than Expected.
type LessThan struct {
	Expected any
}

// Any returns a specification satisfied by every record.
func Any() Specification { return True{} }

// None returns a specification satisfied by no record.
func None() Specification { return False{} }

// ID matches the record identified by id.
func ID(id any) Specification { return Identity{Expected: id} }

// Eq matches values equal to v.
func Eq(v any) Specification { return Equal{Expected: v} }

// Gt matches values strictly greater than v.
func Gt(v any) Specification { return GreaterThan{Expected: v} }

// Lt matches values strictly lower than v.
func Lt(v any) Specification { return LessThan{Expected: v} }

// Gte matches values greater than or equal to v.
func Gte(v any) Specification { return AnyOf(Gt(v), Eq(v)) }

// Lte matches values lower than or equal to v.
func Lte(v any) Specification { return AnyOf(Lt(v), Eq(v)) }

func (True) Accept(v Visitor) error          { return v.VisitTrue(True{}) }
func (False) Accept(v Visitor) error         { return v.VisitFalse(False{}) }
func (s Identity) Accept(v Visitor) error    { return v.VisitIdentity(s) }
func (s Equal) Accept(v Visitor) error       { return v.VisitEqual(s) }
func (s GreaterThan) Accept(v Visitor) error { return v.VisitGreaterThan(s) }
func (s LessThan) Accept(v Visitor) error    { return v.VisitLessThan(s) }

func (True) String() string  { return "true" }
func (False) String() string { return "false" }

func (s Identity) String() string { return fmt.Sprintf("id = %s", formatValue(s.Expected)) }

func (s Equal) String() string {
	if s.Expected == nil {
		return "is absent"
	}
	return "= " + formatValue(s.Expected)
}

func (s GreaterThan) String() string { return "> " + formatValue(s.Expected) }
func (s LessThan) String() string    { return "< " + formatValue(s.Expected) }

func (True) sealed()        {}
func (False) sealed()       {}
func (Identity) sealed()    {}
func (Equal) sealed()       {}
func (GreaterThan) sealed() {}
func (LessThan) sealed()    {}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
