// Package services implements the collaborators around the offer workflow:
// accounts, team capabilities, the product catalogue, address book,
// favourites, notifications and the activity log.
package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-offers/validation"
)

var (
	ErrNotFound           = errors.New("not_found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("already_exists")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrNotApproved        = errors.New("account_not_approved")
)

// ValidationError carries per-field violations.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f, msg := range e.Violations {
		fields = append(fields, f+": "+msg)
	}
	return "validation_failed: " + strings.Join(fields, ", ")
}

func invalid(v validation.Violations) error {
	if v.Empty() {
		return nil
	}
	return &ValidationError{Violations: v}
}

// isUniqueViolation recognises duplicate-key errors from PostgreSQL and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
