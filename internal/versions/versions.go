// Package versions defines how version identifiers are compared and sorted.
//
// Version identifiers are opaque tokens like "26.02.06.15.24". The default
// ordering is a direct string comparison, which matches chronological order
// for the fixed-width, zero-padded tokens used by the published history.
package versions

import (
	"errors"
	"slices"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Ordering selects how two version identifiers are compared.
type Ordering string

const (
	// Lexical compares version identifiers as plain strings.
	Lexical Ordering = "lexical"

	// Semantic compares version identifiers as dotted numeric versions, falling back
	// to Lexical when either side can't be parsed. Switching to it changes the
	// ordering of non zero-padded tokens ("9" < "10") and is a breaking change for
	// existing histories.
	Semantic Ordering = "semantic"
)

// ErrUnknownOrdering is returned when parsing an unsupported ordering name.
var ErrUnknownOrdering = errors.New("unknown version ordering")

// ParseOrdering converts a configuration value to an Ordering. An empty value selects Lexical.
func ParseOrdering(name string) (Ordering, error) {
	switch Ordering(strings.ToLower(strings.TrimSpace(name))) {
	case "", Lexical:
		return Lexical, nil
	case Semantic:
		return Semantic, nil
	default:
		return "", ErrUnknownOrdering
	}
}

// Compare returns -1, 0 or 1 depending on whether a sorts before, equal to or after b.
func (o Ordering) Compare(a string, b string) int {
	if o == Semantic {
		va, errA := goversion.NewVersion(a)
		vb, errB := goversion.NewVersion(b)

		if errA == nil && errB == nil {
			ret := va.Compare(vb)
			if ret != 0 {
				return ret
			}
		}
	}

	return strings.Compare(a, b)
}

// IsNewer returns true if a sorts strictly after b.
func (o Ordering) IsNewer(a string, b string) bool {
	return o.Compare(a, b) > 0
}

// SortAscending returns a stably sorted copy of the provided versions.
func (o Ordering) SortAscending(versions []string) []string {
	ret := slices.Clone(versions)
	slices.SortStableFunc(ret, o.Compare)

	return ret
}

// Max returns the highest of the provided versions.
func (o Ordering) Max(versions []string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}

	return slices.MaxFunc(versions, o.Compare), true
}

// IsNewer returns true if a sorts strictly after b under lexical ordering.
func IsNewer(a string, b string) bool {
	return Lexical.IsNewer(a, b)
}

// SortAscending returns a lexically sorted copy of the provided versions.
func SortAscending(versions []string) []string {
	return Lexical.SortAscending(versions)
}

// Max returns the lexically highest of the provided versions.
func Max(versions []string) (string, bool) {
	return Lexical.Max(versions)
}
