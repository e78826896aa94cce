package mongodb

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/nimburion/docspec/pkg/specification"
)

// compile mirrors how the server applies the expression and its separate flags.
func compile(expected string, wildcard bool, opts specification.StringOptions) *regexp.Regexp {
	pattern := AnchoredPattern(expected, wildcard, opts)
	if RegexOptions(opts) == "i" {
		pattern = "(?i)" + pattern
	}
	return regexp.MustCompile(pattern)
}

func TestGlobSemantics(t *testing.T) {
	single := compile("picture?", true, specification.StringOptions{})
	for _, v := range []string{"picture1", "picture5", "picture9"} {
		if !single.MatchString(v) {
			t.Fatalf("picture? should match %q", v)
		}
	}
	if single.MatchString("picture10") {
		t.Fatal("picture? must not match picture10")
	}

	if !compile("picture*", true, specification.StringOptions{}).MatchString("picture10") {
		t.Fatal("picture* should match picture10")
	}
	for _, glob := range []string{"pict?re5", "pic*re5", "*cture5", "?ict?re5"} {
		if !compile(glob, true, specification.StringOptions{}).MatchString("picture5") {
			t.Fatalf("%q should match picture5", glob)
		}
	}
}

func TestTrimAndCaseSemantics(t *testing.T) {
	none := specification.StringOptions{}
	lead := specification.StringOptions{LeadTrimmed: true}
	tail := specification.StringOptions{TailTrimmed: true}
	full := specification.StringOptions{Trimmed: true}

	tests := []struct {
		value string
		opts  specification.StringOptions
		want  bool
	}{
		{"   picture4", none, false},
		{"   picture4", lead, true},
		{"   picture4", tail, false},
		{"   picture4", full, true},
		{"picture4   ", none, false},
		{"picture4   ", lead, false},
		{"picture4   ", tail, true},
		{"picture4   ", full, true},
		{"picture4", none, true},
		{"picture4", lead, true},
		{"picture4", tail, true},
		{"picture4", full, true},
	}
	for _, tt := range tests {
		got := compile("picture4", false, tt.opts).MatchString(tt.value)
		if got != tt.want {
			t.Fatalf("match(%q, %+v) = %v, want %v", tt.value, tt.opts, got, tt.want)
		}
	}

	if compile("PICTurE3", false, none).MatchString("picture3") {
		t.Fatal("case-sensitive comparison matched different case")
	}
	if !compile("PICTurE3", false, specification.StringOptions{IgnoringCase: true}).MatchString("picture3") {
		t.Fatal("ignoring case should match picture3")
	}
}

func TestProperty_StringPatterns(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("exact pattern matches only the literal value", prop.ForAll(
		func(s string) bool {
			re := compile(s, false, specification.StringOptions{})
			return re.MatchString(s) && !re.MatchString(s+"x") && !re.MatchString(" "+s)
		},
		gen.Identifier(),
	))

	properties.Property("metacharacters are literal", prop.ForAll(
		func(s string, meta string) bool {
			value := s + meta + s
			re := compile(value, false, specification.StringOptions{IgnoringCase: true})
			return re.MatchString(value) && !re.MatchString(s+"x"+s)
		},
		gen.Identifier(),
		gen.OneConstOf(".", "+", "(", ")", "[", "]", "{", "}", "|", "^", "$", `\`),
	))

	properties.Property("question mark matches exactly one character", prop.ForAll(
		func(prefix string, c rune) bool {
			re := compile(prefix+"?", true, specification.StringOptions{})
			return re.MatchString(prefix+string(c)) &&
				!re.MatchString(prefix) &&
				!re.MatchString(prefix+string(c)+string(c))
		},
		gen.Identifier(),
		gen.AlphaNumChar(),
	))

	properties.Property("star matches any suffix", prop.ForAll(
		func(prefix, suffix string) bool {
			re := compile(prefix+"*", true, specification.StringOptions{})
			return re.MatchString(prefix) && re.MatchString(prefix+suffix)
		},
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.Property("case is only ignored when requested", prop.ForAll(
		func(s string) bool {
			upper := strings.ToUpper(s)
			insensitive := compile(upper, false, specification.StringOptions{IgnoringCase: true}).MatchString(s)
			sensitive := compile(upper, false, specification.StringOptions{}).MatchString(s)
			return insensitive && sensitive == (upper == s)
		},
		gen.Identifier(),
	))

	properties.Property("case flag never changes the expression", prop.ForAll(
		func(s string) bool {
			plain := specification.StringOptions{Trimmed: true}
			folded := specification.StringOptions{Trimmed: true, IgnoringCase: true}
			return AnchoredPattern(s, true, plain) == AnchoredPattern(s, true, folded)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
