package semver

import (
	"fmt"
	"strings"
)

// Operator identifies the kind of range expression
type Operator string

const (
	OpAny   Operator = "*"
	OpExact Operator = "="
	OpCaret Operator = "^"
	OpTilde Operator = "~"
	OpGTE   Operator = ">="
)

// Range is a parsed range expression such as "^1.2.0" or "~0.3.1"
type Range struct {
	Op   Operator
	Base Version
	raw  string
}

// ParseRange parses a range expression.
//
// Supported forms:
//
//	1.2.3 / =1.2.3   exact
//	^1.2.3           same major (same minor when major is 0)
//	~1.2.3           same major.minor, patch >= 3
//	>=1.2.3          at least
//	* or ""          any version
func ParseRange(expr string) (Range, error) {
	s := strings.TrimSpace(expr)
	if s == "" || s == "*" || s == "x" {
		return Range{Op: OpAny, raw: expr}, nil
	}

	op := OpExact
	switch {
	case strings.HasPrefix(s, ">="):
		op, s = OpGTE, s[2:]
	case strings.HasPrefix(s, "^"):
		op, s = OpCaret, s[1:]
	case strings.HasPrefix(s, "~"):
		op, s = OpTilde, s[1:]
	case strings.HasPrefix(s, "="):
		s = s[1:]
	}

	base, err := Parse(strings.TrimSpace(s))
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, expr)
	}

	return Range{Op: op, Base: base, raw: expr}, nil
}

// String returns the expression the range was parsed from
func (r Range) String() string {
	if r.raw != "" {
		return r.raw
	}
	if r.Op == OpAny {
		return "*"
	}
	if r.Op == OpExact {
		return r.Base.String()
	}
	return string(r.Op) + r.Base.String()
}

// Contains reports whether v falls within the range
func (r Range) Contains(v Version) bool {
	switch r.Op {
	case OpAny:
		return true
	case OpExact:
		return v.Compare(r.Base) == 0
	case OpGTE:
		return v.Compare(r.Base) >= 0
	case OpTilde:
		return v.Major == r.Base.Major && v.Minor == r.Base.Minor && v.Compare(r.Base) >= 0
	case OpCaret:
		if v.Compare(r.Base) < 0 {
			return false
		}
		if r.Base.Major > 0 {
			return v.Major == r.Base.Major
		}
		return v.Major == 0 && v.Minor == r.Base.Minor
	default:
		return false
	}
}

// Satisfies reports whether version satisfies rangeExpr.
// Unparsable input never satisfies anything.
func Satisfies(version, rangeExpr string) bool {
	v, err := Parse(version)
	if err != nil {
		return false
	}
	r, err := ParseRange(rangeExpr)
	if err != nil {
		return false
	}
	return r.Contains(v)
}
