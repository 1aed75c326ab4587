package models

import "strings"

// Role names shared by both the account-level and group-level planes.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleViewer  = "viewer"
)

// Action tags checked against the static permission table.
const (
	ActionUserCreate    = "user:create"
	ActionUserUpdate    = "user:update"
	ActionUserDelete    = "user:delete"
	ActionUserView      = "user:view"
	ActionGroupCreate   = "group:create"
	ActionGroupUpdate   = "group:update"
	ActionGroupDelete   = "group:delete"
	ActionGroupView     = "group:view"
	ActionPaymentCreate = "payment:create"
)

// ValidRole reports whether role is one of the three known role names.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleViewer:
		return true
	}
	return false
}

// NormalizeEmail canonicalizes an email for use as a member identity.
// Emails are compared case-insensitively throughout the system.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the part of the email before the '@', used as a
// display-name fallback when the address does not resolve to a user.
func EmailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
