package accounts

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeEmailConflict  = "ACCOUNT_EMAIL_CONFLICT"
	TextCodeEmptyPassword  = "ACCOUNT_EMPTY_PASSWORD"
	TextCodeInvalidRole    = "ACCOUNT_INVALID_ROLE"
	TextCodeMalformedEmail = "ACCOUNT_MALFORMED_EMAIL"
)

// ErrEmailConflict is returned when a concurrent signup claimed the email first.
var ErrEmailConflict = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailConflict).
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password can not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidRole is returned when configuring an unknown default role
var ErrInvalidRole = goerrors.New("unknown role", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole)

// ErrMalformedEmail is returned for empty or malformed email inputs
var ErrMalformedEmail = goerrors.New("malformed email address", goerrors.CategoryBadInput).
	WithTextCode(TextCodeMalformedEmail).
	WithCode(goerrors.CodeBadRequest)

// IsEmailConflict will check for signup races lost at commit
func IsEmailConflict(err error) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == TextCodeEmailConflict
	}
	return false
}

// NormalizeEmail lower cases and trims an email so lookups are stable
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func passthrough(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
