package domain

import "strings"

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
