// Package policy implements path syntax validation and the two-tier glob
// matcher used to evaluate access decisions against PolicyRule entries.
package policy

import (
	"regexp"
	"strings"

	"github.com/nyxvault/secretvault/internal/store"
)

// Capability is one of the four fixed access capabilities.
type Capability string

const (
	CapRead   Capability = "read"
	CapWrite  Capability = "write"
	CapList   Capability = "list"
	CapDelete Capability = "delete"
)

// ValidCapabilities is the closed set of recognized capability names.
var ValidCapabilities = map[Capability]bool{
	CapRead:   true,
	CapWrite:  true,
	CapList:   true,
	CapDelete: true,
}

// segmentChars is the alphabet allowed in a path segment.
const segmentChars = "A-Za-z0-9_-"

var segmentRE = regexp.MustCompile(`^[` + segmentChars + `]+$`)

// ValidPath reports whether p is a syntactically valid secret path: one or
// more '/'-separated segments, each a non-empty run of
// {A-Z,a-z,0-9,_,-}, with no leading, trailing, or consecutive separators.
func ValidPath(p string) bool {
	if p == "" {
		return false
	}
	if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") || strings.Contains(p, "//") {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if !segmentRE.MatchString(seg) {
			return false
		}
	}
	return true
}

// ValidPattern reports whether pat is acceptable as a policy pattern. Only
// the empty string is rejected; no further syntax check is made, so a
// pattern may contain the wildcard tokens '*' and '**' and any other
// characters that paths reject.
func ValidPattern(pat string) bool {
	return pat != ""
}

// CompileMatcher compiles a policy pattern into a matcher function per the
// normative algorithm: split on the literal "**" token, escape regex
// metacharacters in the remaining literal parts, replace a lone "*" within
// a part with a non-slash run, and join the parts with an any-character
// (including "/") run for each "**". The result is anchored start and end.
//
// This is deliberately implemented on top of regexp rather than a
// glob library: off-the-shelf glob matchers treat "*" as matching "/"
// (wrong for the single-segment wildcard) or don't support the
// any-depth "**" token at all.
func CompileMatcher(pattern string) (*regexp.Regexp, error) {
	// Splitting "**" on itself yields ["", ""], which the loop below turns
	// into "^.*$" — matching every path including the empty one, per spec.
	parts := strings.Split(pattern, "**")
	var sb strings.Builder
	sb.WriteString("^")
	for i, part := range parts {
		if i > 0 {
			sb.WriteString(".*")
		}
		sb.WriteString(compileSegmentPart(part))
	}
	sb.WriteString("$")

	return regexp.Compile(sb.String())
}

// compileSegmentPart escapes regex metacharacters in a pattern fragment
// that does not contain "**", replacing each single "*" with a run of
// non-slash characters.
func compileSegmentPart(part string) string {
	var sb strings.Builder
	for _, r := range part {
		if r == '*' {
			sb.WriteString("[^/]+")
			continue
		}
		sb.WriteString(regexp.QuoteMeta(string(r)))
	}
	return sb.String()
}

// Matches reports whether path matches pattern under the two-tier glob
// rules of CompileMatcher.
func Matches(pattern, path string) bool {
	re, err := CompileMatcher(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// capabilityTable maps each engine operation to the capability it requires.
var capabilityTable = map[string]Capability{
	"store":    CapWrite,
	"update":   CapWrite,
	"retrieve": CapRead,
	"list":     CapList,
	"delete":   CapDelete,
}

// CapabilityFor returns the capability required for the given operation
// name and whether that operation is recognized.
func CapabilityFor(operation string) (Capability, bool) {
	cap, ok := capabilityTable[operation]
	return cap, ok
}

// CheckAccess returns true if there exists a policy rule granting identity
// the capability cap on a pattern that matches path. It is existential:
// there is no precedence, no explicit deny, and no inheritance. An empty
// or nil policy set always returns false (default deny).
func CheckAccess(policies []store.PolicyRule, identity, path string, cap Capability) bool {
	for _, rule := range policies {
		if rule.Identity != identity {
			continue
		}
		if !hasCapability(rule.Capabilities, cap) {
			continue
		}
		if Matches(rule.PathPattern, path) {
			return true
		}
	}
	return false
}

func hasCapability(caps []string, cap Capability) bool {
	for _, c := range caps {
		if Capability(c) == cap {
			return true
		}
	}
	return false
}
