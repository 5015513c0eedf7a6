package validate

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

// RequireBounded trims and ensures length bounds.
func RequireBounded(name, s string, min, max int) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n < min || n > max {
		return "", errors.New(name + " must be between " + strconv.Itoa(min) + " and " + strconv.Itoa(max) + " characters")
	}
	return s, nil
}

// OptionalBounded is RequireBounded for fields that may be omitted.
// A nil input stays nil.
func OptionalBounded(name string, s *string, min, max int) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v, err := RequireBounded(name, *s, min, max)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// MaxLen checks an untrimmed value against an upper bound only.
func MaxLen(name string, s *string, max int) error {
	if s == nil {
		return nil
	}
	if utf8.RuneCountInString(*s) > max {
		return errors.New(name + " must be at most " + strconv.Itoa(max) + " characters")
	}
	return nil
}

// SearchQuery enforces 1..max runes on the raw query, without trimming:
// a query of spaces is a legitimate substring.
func SearchQuery(q string, max int) (string, error) {
	n := utf8.RuneCountInString(q)
	if n < 1 || n > max {
		return "", errors.New("q must be between 1 and " + strconv.Itoa(max) + " characters")
	}
	return q, nil
}

// ParseID parses a positive decimal identifier.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.New("id must be an integer")
	}
	return id, nil
}
