package specification

import (
	"fmt"
	"strings"
)

// StringOptions tune string comparisons. Trimming tolerates surrounding whitespace in the
// stored value; it never mutates stored data.
type StringOptions struct {
	Trimmed      bool
	LeadTrimmed  bool
	TailTrimmed  bool
	IgnoringCase bool
}

// IsZero reports whether no option is set.
func (o StringOptions) IsZero() bool {
	return !o.Trimmed && !o.LeadTrimmed && !o.TailTrimmed && !o.IgnoringCase
}

// TrimsLead reports whether leading whitespace is tolerated.
func (o StringOptions) TrimsLead() bool { return o.Trimmed || o.LeadTrimmed }

// TrimsTail reports whether trailing whitespace is tolerated.
func (o StringOptions) TrimsTail() bool { return o.Trimmed || o.TailTrimmed }

// StringMatching compares the current attribute against Expected. When Wildcard is set,
// Expected is a glob where '?' matches one character and '*' any run of characters;
// otherwise Expected is compared literally. A nil Expected means the attribute is absent.
type StringMatching struct {
	Expected *string
	Options  StringOptions
	Wildcard bool
}

// EqualString matches strings equal to s.
func EqualString(s string) StringMatching {
	return StringMatching{Expected: &s}
}

// Matching matches strings against the glob pattern.
func Matching(pattern string) StringMatching {
	return StringMatching{Expected: &pattern, Wildcard: true}
}

// AbsentString matches records where the attribute is absent.
func AbsentString() StringMatching {
	return StringMatching{}
}

// Trimming tolerates leading and trailing whitespace.
func (s StringMatching) Trimming() StringMatching {
	s.Options.Trimmed = true
	return s
}

// TrimmingLead tolerates leading whitespace.
func (s StringMatching) TrimmingLead() StringMatching {
	s.Options.LeadTrimmed = true
	return s
}

// TrimmingTail tolerates trailing whitespace.
func (s StringMatching) TrimmingTail() StringMatching {
	s.Options.TailTrimmed = true
	return s
}

// IgnoringCase compares case-insensitively.
func (s StringMatching) IgnoringCase() StringMatching {
	s.Options.IgnoringCase = true
	return s
}

func (s StringMatching) Accept(v Visitor) error { return v.VisitStringMatching(s) }

func (s StringMatching) String() string {
	if s.Expected == nil {
		return "is absent"
	}
	op := "="
	if s.Wildcard {
		op = "matches"
	}
	var mods []string
	if s.Options.TrimsLead() {
		mods = append(mods, "trim-lead")
	}
	if s.Options.TrimsTail() {
		mods = append(mods, "trim-tail")
	}
	if s.Options.IgnoringCase {
		mods = append(mods, "ignore-case")
	}
	out := fmt.Sprintf("%s %q", op, *s.Expected)
	if len(mods) > 0 {
		out += " [" + strings.Join(mods, ",") + "]"
	}
	return out
}

func (StringMatching) sealed() {}
