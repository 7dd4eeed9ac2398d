package tenant

import (
	"errors"
	"fmt"
)

// ErrNoActiveContext is returned by switch operations before Establish
// has installed a context.
var ErrNoActiveContext = errors.New("tenant: no active context")

// NoCompanyAvailableError is fatal to Establish: the user has no company
// access and no fallback company exists. It must surface to the caller —
// typically blocking login completion.
type NoCompanyAvailableError struct {
	UserID string
}

func (e *NoCompanyAvailableError) Error() string {
	return fmt.Sprintf("tenant: no company available for user %q", e.UserID)
}

// IsNoCompanyAvailable reports whether err is a NoCompanyAvailableError.
func IsNoCompanyAvailable(err error) bool {
	var e *NoCompanyAvailableError
	return errors.As(err, &e)
}

// BranchNotAvailableError rejects a SwitchBranch whose target is not in
// the current company's available set. The state is left untouched; the
// target is never silently substituted.
type BranchNotAvailableError struct {
	BranchID string
}

func (e *BranchNotAvailableError) Error() string {
	return fmt.Sprintf("tenant: branch %q not available in current company", e.BranchID)
}

// IsBranchNotAvailable reports whether err is a BranchNotAvailableError.
func IsBranchNotAvailable(err error) bool {
	var e *BranchNotAvailableError
	return errors.As(err, &e)
}

// CompanyNotAvailableError rejects a SwitchCompany whose target is not
// among the user's companies.
type CompanyNotAvailableError struct {
	CompanyID string
}

func (e *CompanyNotAvailableError) Error() string {
	return fmt.Sprintf("tenant: company %q not available for current user", e.CompanyID)
}

// IsCompanyNotAvailable reports whether err is a CompanyNotAvailableError.
func IsCompanyNotAvailable(err error) bool {
	var e *CompanyNotAvailableError
	return errors.As(err, &e)
}
