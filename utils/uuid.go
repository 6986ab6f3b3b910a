package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random identifier
func GenerateID() string {
	return uuid.NewString()
}

// GenerateOrderedID returns a time-ordered (v7) identifier, so bid IDs sort
// in the order they were issued. Falls back to a random ID if the clock
// source fails.
func GenerateOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
