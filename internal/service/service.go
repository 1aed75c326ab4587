// Package service implements the core operations: group and membership
// management, the expense ledger, balance summaries, the settlement
// workflow, tenant user provisioning and credit purchases. Handlers stay
// thin; every rule lives here.
package service

import (
	"errors"
	"fmt"

	"github.com/vaibhavdeo21/Finance-Server/internal/models"
)

// Caller is the authenticated identity attached to a request, taken from
// the verified session claims. Role is the account-level role only; group
// roles are re-resolved from stored state.
type Caller struct {
	ID      string
	Email   string
	Role    string
	AdminID string
}

// Validation and domain errors surfaced by the service layer. The route
// layer maps these (together with storage and authz sentinels) onto
// transport status codes.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrSplitMismatch       = errors.New("split amounts do not match total expense amount")
	ErrInsufficientCredits = errors.New("not enough credits to perform this operation")
	ErrOwnerImmutable      = errors.New("the group owner cannot be removed or demoted")
	ErrSelfApproval        = errors.New("members cannot confirm their own settlement")
	ErrNotCreditor         = errors.New("only a member who is owed money can confirm receipt")
	ErrNotDebtor           = errors.New("only a member who owes money can request settlement")
)

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

func normalizeEmails(emails []string) []string {
	seen := make(map[string]bool, len(emails))
	var out []string
	for _, e := range emails {
		n := models.NormalizeEmail(e)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
