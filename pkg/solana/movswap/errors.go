package movswap

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/mov-swap/pkg/solana"
)

// ProgramError is an error the program reports to the host. It unwraps to its
// stable solana.CustomError code.
type ProgramError struct {
	code solana.CustomError
	name string
}

func newProgramError(code solana.CustomError, name string) *ProgramError {
	return &ProgramError{
		code: code,
		name: name,
	}
}

func (e *ProgramError) Error() string {
	return e.name
}

func (e *ProgramError) Unwrap() error {
	return e.code
}

// Code returns the custom error code reported to the host.
func (e *ProgramError) Code() solana.CustomError {
	return e.code
}

var (
	ErrAuthorization          = newProgramError(0, "authorization error")
	ErrOwnership              = newProgramError(1, "ownership error")
	ErrState                  = newProgramError(2, "state error")
	ErrFunding                = newProgramError(3, "funding error")
	ErrInsufficientFunds      = newProgramError(4, "insufficient funds")
	ErrInvalidRecordReference = newProgramError(5, "invalid record reference")
	ErrDecode                 = newProgramError(6, "decode error")
	ErrExternalService        = newProgramError(7, "external service error")
	ErrArithmeticOverflow     = newProgramError(8, "arithmetic overflow")
)

type decodeError struct {
	reason string
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDecode, e.reason)
}

func (e *decodeError) Unwrap() error {
	return ErrDecode
}

var (
	ErrEmptyInput      error = &decodeError{reason: "empty input"}
	ErrUnknownTag      error = &decodeError{reason: "unknown tag"}
	ErrTruncatedAmount error = &decodeError{reason: "truncated amount"}
)

// externalServiceError reports a failed cross-program invocation. It matches
// both ErrExternalService and the original cause.
type externalServiceError struct {
	cause error
}

func newExternalServiceError(cause error) error {
	return &externalServiceError{cause: cause}
}

func (e *externalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", ErrExternalService, e.cause)
}

func (e *externalServiceError) Unwrap() []error {
	return []error{ErrExternalService, e.cause}
}

// ErrorCode returns the custom code carried by err, if any. External service
// failures report ErrExternalService's code rather than the callee's.
func ErrorCode(err error) (solana.CustomError, bool) {
	var programErr *ProgramError
	if errors.As(err, &programErr) {
		return programErr.Code(), true
	}
	return 0, false
}
