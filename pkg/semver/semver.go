package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	modsemver "golang.org/x/mod/semver"
)

var (
	// ErrInvalidVersion is returned when a version string is not MAJOR.MINOR.PATCH
	ErrInvalidVersion = errors.New("invalid semantic version")
	// ErrInvalidRange is returned when a range expression cannot be parsed
	ErrInvalidRange = errors.New("invalid version range")
)

var semverRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// Version is a parsed semantic version
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
	Build      string
}

// Parse parses a MAJOR.MINOR.PATCH version with optional pre-release and build suffixes
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	matches := semverRegex.FindStringSubmatch(trimmed)
	if matches == nil || !modsemver.IsValid("v"+trimmed) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	var nums [3]int
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}

	return Version{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		Prerelease: strings.TrimPrefix(matches[4], "-"),
		Build:      strings.TrimPrefix(matches[5], "+"),
	}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsValid reports whether s parses as a semantic version
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// String returns the version without a leading "v"
func (v Version) String() string {
	return strings.TrimPrefix(v.canonical(), "v")
}

// Compare orders two versions by MAJOR.MINOR.PATCH only.
// Pre-release and build suffixes do not take part in range checks.
func (v Version) Compare(other Version) int {
	return modsemver.Compare(v.core(), other.core())
}

// ComparePrecedence orders two versions using full semver precedence,
// where a pre-release sorts before its release.
func (v Version) ComparePrecedence(other Version) int {
	return modsemver.Compare(v.canonical(), other.canonical())
}

func (v Version) core() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) canonical() string {
	s := v.core()
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}
