package models

import "github.com/google/uuid"

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether s is a well-formed record identifier.
func ValidID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
