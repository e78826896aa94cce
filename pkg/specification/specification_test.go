package specification

import (
	"errors"
	"testing"
)

type recordingVisitor struct {
	visited []string
}

func (r *recordingVisitor) record(name string) error {
	r.visited = append(r.visited, name)
	return nil
}

func (r *recordingVisitor) VisitTrue(True) error                     { return r.record("true") }
func (r *recordingVisitor) VisitFalse(False) error                   { return r.record("false") }
func (r *recordingVisitor) VisitIdentity(Identity) error             { return r.record("identity") }
func (r *recordingVisitor) VisitAttribute(Attribute) error           { return r.record("attribute") }
func (r *recordingVisitor) VisitEqual(Equal) error                   { return r.record("equal") }
func (r *recordingVisitor) VisitGreaterThan(GreaterThan) error       { return r.record("gt") }
func (r *recordingVisitor) VisitLessThan(LessThan) error             { return r.record("lt") }
func (r *recordingVisitor) VisitStringMatching(StringMatching) error { return r.record("string") }
func (r *recordingVisitor) VisitNot(Not) error                       { return r.record("not") }
func (r *recordingVisitor) VisitAnd(And) error                       { return r.record("and") }
func (r *recordingVisitor) VisitOr(Or) error                         { return r.record("or") }

func TestAccept_DispatchesToVariant(t *testing.T) {
	tests := []struct {
		spec Specification
		want string
	}{
		{Any(), "true"},
		{None(), "false"},
		{ID(3), "identity"},
		{Attr("price", Eq(2.0)), "attribute"},
		{Eq("x"), "equal"},
		{Gt(1), "gt"},
		{Lt(1), "lt"},
		{Matching("pic*"), "string"},
		{NotOf(Any()), "not"},
		{AllOf(Any()), "and"},
		{AnyOf(Any()), "or"},
	}

	for _, tt := range tests {
		v := &recordingVisitor{}
		if err := tt.spec.Accept(v); err != nil {
			t.Fatalf("Accept(%s) returned error: %v", tt.spec, err)
		}
		if len(v.visited) != 1 || v.visited[0] != tt.want {
			t.Fatalf("Accept(%s) visited %v, want [%s]", tt.spec, v.visited, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Specification
		wantErr bool
	}{
		{name: "nil", spec: nil, wantErr: true},
		{name: "true", spec: Any()},
		{name: "attribute", spec: Attr("price", Gt(2))},
		{name: "empty path", spec: Attr("", Gt(2)), wantErr: true},
		{name: "nil attribute inner", spec: Attr("price", nil), wantErr: true},
		{name: "empty and", spec: AllOf(), wantErr: true},
		{name: "empty or", spec: AnyOf(), wantErr: true},
		{name: "nil operand", spec: AllOf(Any(), nil), wantErr: true},
		{name: "nested empty", spec: NotOf(AllOf(Any(), AnyOf())), wantErr: true},
		{name: "nested valid", spec: NotOf(AllOf(Attr("a", Eq(1)), AnyOf(Attr("b", Lt(2)))))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.spec)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSpecification) {
					t.Fatalf("expected ErrInvalidSpecification, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAllOf_CopiesOperands(t *testing.T) {
	ops := []Specification{Eq(1), Eq(2)}
	spec := AllOf(ops...).(And)
	ops[0] = Eq(99)

	if got := spec.Operands[0].(Equal).Expected; got != 1 {
		t.Fatalf("operand mutated through caller slice: got %v", got)
	}
}

func TestStringMatching_Modifiers(t *testing.T) {
	base := Matching("pict?re4")
	trimmed := base.TrimmingLead().IgnoringCase()

	if !base.Options.IsZero() {
		t.Fatal("modifiers must not mutate the receiver")
	}
	if !trimmed.Options.TrimsLead() || trimmed.Options.TrimsTail() {
		t.Fatalf("unexpected trim options: %+v", trimmed.Options)
	}
	if !trimmed.Options.IgnoringCase {
		t.Fatal("expected ignoring case")
	}
	if full := EqualString("x").Trimming(); !full.Options.TrimsLead() || !full.Options.TrimsTail() {
		t.Fatalf("full trim must imply lead and tail trim: %+v", full.Options)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		spec Specification
		want string
	}{
		{Attr("price", Gt(2)), "price > 2"},
		{Attr("name", Eq(nil)), "name is absent"},
		{AllOf(Attr("a", Eq("x")), Attr("b", Lt(3))), `(a = "x" AND b < 3)`},
		{NotOf(ID(7)), "NOT (id = 7)"},
		{Attr("url", Matching("pic*").Trimming().IgnoringCase()), `url matches "pic*" [trim-lead,trim-tail,ignore-case]`},
	}

	for _, tt := range tests {
		if got := tt.spec.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}
