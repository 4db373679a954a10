// Package sequence issues globally unique, ordered, human-readable
// identifiers of the form "<PREFIX>-<n>". Every entity type draws from the
// same monotonic counter, so identifiers issued back to back carry
// consecutive numbers regardless of prefix.
package sequence

import (
	"errors"
	"strconv"
	"strings"
)

// Seed is the counter value before the first allocation; the first issued
// UID ends in Seed+1.
const Seed = 10000

var (
	// ErrMalformedUID indicates a UID that does not parse as "<prefix>-<n>".
	ErrMalformedUID = errors.New("sequence: malformed uid")
	// ErrEmptyPrefix indicates an allocation request without a prefix.
	ErrEmptyPrefix = errors.New("sequence: prefix required")
	// ErrAllocationConflict indicates a lock-wait timeout on the global
	// counter. The whole allocation may be retried.
	ErrAllocationConflict = errors.New("sequence: allocation conflict")
)

// FormatUID renders a prefix and number as a UID.
func FormatUID(prefix string, n int64) string {
	return prefix + "-" + strconv.FormatInt(n, 10)
}

// splitUID separates the prefix from the numeric suffix. Prefixes may
// themselves contain hyphens, so the split happens at the last one.
func splitUID(uid string) (string, string, error) {
	i := strings.LastIndexByte(uid, '-')
	if i <= 0 || i == len(uid)-1 {
		return "", "", ErrMalformedUID
	}
	return uid[:i], uid[i+1:], nil
}

// ParseNumber extracts the numeric suffix of a UID.
func ParseNumber(uid string) (int64, error) {
	_, raw, err := splitUID(uid)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrMalformedUID
	}
	return n, nil
}

// ParsePrefix extracts the prefix of a UID.
func ParsePrefix(uid string) (string, error) {
	prefix, raw, err := splitUID(uid)
	if err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return "", ErrMalformedUID
	}
	return prefix, nil
}

func validPrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, r := range prefix {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return prefix[0] != '-' && prefix[len(prefix)-1] != '-'
}
