// Package authz implements the two authorization planes: a static
// role→action permission table checked against the caller's session claim,
// and dynamic group-scoped role resolution re-read from stored state at
// mutation time so a stale claim cannot grant revoked privilege.
package authz

import (
	"errors"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
)

var (
	// ErrUnauthorized means the caller carries no usable identity.
	ErrUnauthorized = errors.New("authz: unauthorized")

	// ErrForbidden means the caller's resolved role lacks the permission.
	// Deliberately distinct from not-found.
	ErrForbidden = errors.New("authz: insufficient permissions")
)

// PermissionTable maps role names to the set of permitted action tags.
// It is built once at startup and never mutated afterwards.
type PermissionTable map[string]map[string]bool

// DefaultPermissions returns the standard three-role table.
func DefaultPermissions() PermissionTable {
	return NewPermissionTable(map[string][]string{
		models.RoleAdmin: {
			models.ActionUserCreate,
			models.ActionUserUpdate,
			models.ActionUserDelete,
			models.ActionUserView,
			models.ActionGroupCreate,
			models.ActionGroupUpdate,
			models.ActionGroupDelete,
			models.ActionGroupView,
			models.ActionPaymentCreate,
		},
		models.RoleManager: {
			models.ActionUserView,
			models.ActionGroupCreate,
			models.ActionGroupUpdate,
			models.ActionGroupView,
		},
		models.RoleViewer: {
			models.ActionUserView,
			models.ActionGroupView,
		},
	})
}

// NewPermissionTable builds a table from role→actions lists.
func NewPermissionTable(grants map[string][]string) PermissionTable {
	table := make(PermissionTable, len(grants))
	for role, actions := range grants {
		set := make(map[string]bool, len(actions))
		for _, action := range actions {
			set[action] = true
		}
		table[role] = set
	}
	return table
}

// Authorizer answers both static and group-scoped authorization questions.
type Authorizer struct {
	table PermissionTable
}

// New creates an Authorizer around an immutable permission table.
func New(table PermissionTable) *Authorizer {
	return &Authorizer{table: table}
}

// Can checks the caller's account-level role against the static table.
// This gates actions independent of any specific group.
func (a *Authorizer) Can(role, action string) error {
	if role == "" {
		return ErrUnauthorized
	}
	if !a.table[role][action] {
		return ErrForbidden
	}
	return nil
}

// GroupRole resolves the caller's effective role within a group from the
// current member list, falling back to owner equality (adminId is
// authoritative, adminEmail covers legacy groups). Returns empty when the
// caller is not a member.
func GroupRole(group *models.Group, userID, email string) string {
	if m := group.MemberByEmail(email); m != nil {
		if group.IsOwner(userID, email) {
			// The owner is always an admin regardless of the stored row.
			return models.RoleAdmin
		}
		return m.Role
	}
	if group.IsOwner(userID, email) {
		return models.RoleAdmin
	}
	return ""
}

// RequireGroupRole re-resolves the caller's group role and checks it
// against the allowed set. Non-members are forbidden, not "not found": the
// group was already fetched, so existence is not being leaked.
func RequireGroupRole(group *models.Group, userID, email string, allowed ...string) error {
	role := GroupRole(group, userID, email)
	if role == "" {
		return ErrForbidden
	}
	for _, r := range allowed {
		if role == r {
			return nil
		}
	}
	return ErrForbidden
}
