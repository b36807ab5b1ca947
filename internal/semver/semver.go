// ABOUTME: Lenient major.minor.patch parsing, ordering, and bumping
// ABOUTME: Malformed or missing components coerce to zero instead of failing

package semver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKind is returned by Bump for anything other than major, minor or patch.
var ErrInvalidKind = errors.New("invalid bump kind: use major, minor, or patch")

// Kind identifies which component a bump increments.
type Kind string

const (
	KindMajor Kind = "major"
	KindMinor Kind = "minor"
	KindPatch Kind = "patch"
)

// ParseKind normalizes s into a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMajor, KindMinor, KindPatch:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Version is a major.minor.patch triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// String formats v as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Parse splits s on "." and reads the first three components.
// Missing or non-numeric components become 0 and negative components keep
// their sign. Parse never fails.
func Parse(s string) Version {
	parts := strings.Split(s, ".")
	var nums [3]int
	for i := 0; i < 3 && i < len(parts); i++ {
		nums[i] = component(parts[i])
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}
}

func component(s string) int {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 0)
	if err != nil {
		// Out-of-range values come back clamped to the int bounds.
		if errors.Is(err, strconv.ErrRange) {
			return int(n)
		}
		return 0
	}
	return int(n)
}

// Compare returns -1 if a < b, 0 if a == b and 1 if a > b.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// Compare orders v against o by major, then minor, then patch.
func (v Version) Compare(o Version) int {
	for _, pair := range [3][2]int{{v.Major, o.Major}, {v.Minor, o.Minor}, {v.Patch, o.Patch}} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

// Bump increments the component named by kind and zeroes everything less
// significant. The current version is parsed leniently.
func Bump(current string, kind Kind) (string, error) {
	v := Parse(current)
	switch kind {
	case KindMajor:
		v = Version{Major: v.Major + 1}
	case KindMinor:
		v = Version{Major: v.Major, Minor: v.Minor + 1}
	case KindPatch:
		v.Patch++
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return v.String(), nil
}
