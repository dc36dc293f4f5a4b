package dyson

import (
	"errors"
	"fmt"

	"github.com/xraph/dyson/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound         = errors.New("dyson: not found")
	ErrAlreadyExists    = errors.New("dyson: already exists")
	ErrInvalidState     = errors.New("dyson: invalid state")
	ErrInvalidArgument  = errors.New("dyson: invalid argument")
	ErrForbidden        = errors.New("dyson: forbidden")
	ErrUnknownOperation = errors.New("dyson: unknown operation")

	// Accounting errors
	ErrInsufficientResource        = errors.New("dyson: insufficient resources")
	ErrInsufficientBalance         = errors.New("dyson: insufficient balance")
	ErrInsufficientEnergy          = errors.New("dyson: insufficient energy")
	ErrInsufficientAllocatedEnergy = errors.New("dyson: insufficient allocated energy")
	ErrBelowMinimum                = errors.New("dyson: investment amount too low")
	ErrOverflow                    = types.ErrOverflow

	// Governance errors
	ErrAlreadyVoted = errors.New("dyson: already voted")

	// Store errors
	ErrStoreClosed        = errors.New("dyson: store is closed")
	ErrTransactionFailed  = errors.New("dyson: transaction failed")
	ErrInvariantViolation = errors.New("dyson: invariant violation")
)

// Not-found and state errors that keep a specific message while matching
// their general kind with errors.Is.
var (
	ErrPhaseNotFound      error = &kindError{kind: ErrNotFound, msg: "dyson: phase not found"}
	ErrResourceNotFound   error = &kindError{kind: ErrNotFound, msg: "dyson: resource not found"}
	ErrInvestmentNotFound error = &kindError{kind: ErrNotFound, msg: "dyson: investment not found"}
	ErrProposalNotFound   error = &kindError{kind: ErrNotFound, msg: "dyson: proposal not found"}
	ErrVoteNotFound       error = &kindError{kind: ErrNotFound, msg: "dyson: vote not found"}
	ErrSectorNotFound     error = &kindError{kind: ErrNotFound, msg: "dyson: sector not found"}

	ErrProposalNotActive error = &kindError{kind: ErrInvalidState, msg: "dyson: proposal is not active"}
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("dyson: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidArgument.
func (e ValidationError) Unwrap() error { return ErrInvalidArgument }

// InvariantError reports a ledger property that does not hold over the
// stored state.
type InvariantError struct {
	Invariant string
	Subject   string
	Detail    string
}

func (e InvariantError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("dyson: invariant %s violated: %s", e.Invariant, e.Detail)
	}
	return fmt.Sprintf("dyson: invariant %s violated for %q: %s", e.Invariant, e.Subject, e.Detail)
}

func (e InvariantError) Unwrap() error { return ErrInvariantViolation }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "dyson: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("dyson: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// ErrorOrNil returns e when it holds errors and nil otherwise.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInsufficient returns true if a consumption exceeded what was available.
func IsInsufficient(err error) bool {
	return errors.Is(err, ErrInsufficientResource) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientEnergy) ||
		errors.Is(err, ErrInsufficientAllocatedEnergy)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
