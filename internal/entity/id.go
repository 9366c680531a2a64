package entity

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type ID string

func NewID() ID { return ID(uuid.NewString()) }

// ParseID accepts any non-empty identifier without whitespace or slashes.
// Records created elsewhere may not use uuids.
func ParseID(s string) (ID, error) {
	if s == "" || strings.ContainsAny(s, " \t\r\n/\\") {
		return "", fmt.Errorf("malformed id %q: %w", s, ErrInvalid)
	}
	return ID(s), nil
}

func (id ID) String() string { return string(id) }

// Short returns the first n characters of the id, or the whole id when shorter.
func (id ID) Short(n int) string {
	s := id.String()
	if len(s) <= n {
		return s
	}
	return s[:n]
}
