package domain

import "strings"

// NormalizeEmail lowercases and trims an address so email uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
