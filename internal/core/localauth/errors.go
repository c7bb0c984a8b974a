package localauth

import "errors"

// Common errors returned by the fallback authority. "Not found" and "wrong
// password" collapse into ErrInvalidCredentials so the caller cannot probe
// the directory.
var (
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
