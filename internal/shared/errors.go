package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates a failed login or an unusable bearer token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingCredentials occurs when a protected route receives no bearer token.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrDuplicateIdentity indicates the username or email is already registered.
	ErrDuplicateIdentity = errors.New("username or email already registered")
	// ErrForbidden indicates the caller is identified but not allowed to act.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation wraps request validation failures.
	ErrValidation = errors.New("validation failed")
)

// UserSafeMessage returns a message suitable for clients. Wrapped detail is
// dropped for credential errors so token failure reasons never leave the process.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return ErrMissingCredentials.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials.Error()
	case errors.Is(err, ErrDuplicateIdentity):
		return ErrDuplicateIdentity.Error()
	case errors.Is(err, ErrForbidden):
		return ErrForbidden.Error()
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "internal error"
	}
}
