package mongodb

import (
	"regexp"
	"strings"

	"github.com/nimburion/docspec/pkg/specification"
)

// GlobToRegex converts a glob into a regular expression body: '?' matches one character,
// '*' any run of characters, everything else is literal.
func GlobToRegex(glob string) string {
	var sb strings.Builder
	for _, r := range glob {
		switch r {
		case '?':
			sb.WriteString(".")
		case '*':
			sb.WriteString(".*")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	return sb.String()
}

// AnchoredPattern builds the anchored expression for a string predicate. Case sensitivity
// is not part of the expression; see RegexOptions.
func AnchoredPattern(expected string, wildcard bool, opts specification.StringOptions) string {
	var sb strings.Builder
	sb.WriteString("^")
	if opts.TrimsLead() {
		sb.WriteString(`\s*`)
	}
	if wildcard {
		sb.WriteString(GlobToRegex(expected))
	} else {
		sb.WriteString(regexp.QuoteMeta(expected))
	}
	if opts.TrimsTail() {
		sb.WriteString(`\s*`)
	}
	sb.WriteString("$")
	return sb.String()
}

// RegexOptions returns the MongoDB regex flags applied next to the expression.
func RegexOptions(opts specification.StringOptions) string {
	if opts.IgnoringCase {
		return "i"
	}
	return ""
}
