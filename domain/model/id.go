package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is the opaque identifier used for file records and ref owners.
// Callers parse external input once with ParseID; everything internal
// treats the value as opaque.
type ID string

func NewID() ID {
	return ID(uuid.NewString())
}

func ParseID(s string) (ID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ID(s), nil
}

func (id ID) String() string {
	return string(id)
}
