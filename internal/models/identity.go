package models

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix is the reserved marker carried by locally minted identifiers.
// Store-issued ids never start with it, so the two can always be told apart.
const TempIDPrefix = "tmp_"

// NewTemporaryID mints a local identifier for an entity whose persistence
// is still in flight.
func NewTemporaryID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTemporaryID reports whether id carries the temporary marker.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
