// Package models defines the core domain types for the expense-splitting
// backend.
//
// # Identity and money
//
// Entities are identified by UUID strings. Member identity inside a group is
// the normalized email address (trimmed, lower-cased); NormalizeEmail is the
// single place normalization happens and every boundary is expected to call
// it. Money is represented with shopspring/decimal so split arithmetic keeps
// decimal semantics end to end.
//
// # Role planes
//
// There are two independent role planes that must not be conflated:
//
//   - the account-level role on User, which gates system-wide actions
//     (creating users under an admin's hierarchy, creating groups, payments)
//     against the static permission table in the authz package, and
//   - the group-level role on Member, which gates mutations of a specific
//     group and is re-resolved from stored state at mutation time.
//
// Both planes use the same three role names (admin, manager, viewer).
package models
