package models

import "strings"

const (
	RoleAdmin  = "admin"
	RoleDealer = "dealer"
	RoleUser   = "user"
)

// NormalizeRole folds a role for comparison: surrounding whitespace is
// dropped and case is ignored.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// SameRole reports whether two role strings designate the same role.
func SameRole(a, b string) bool {
	return NormalizeRole(a) == NormalizeRole(b)
}
