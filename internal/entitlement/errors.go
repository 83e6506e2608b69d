package entitlement

import "errors"

var (
	// ErrValidation marks malformed input, e.g. an empty email or an
	// unknown offering id.
	ErrValidation = errors.New("validation failed")

	// ErrTrialAlreadyUsed blocks a second trial activation for an email.
	ErrTrialAlreadyUsed = errors.New("trial already used")

	// ErrNotFound marks an operation against an email or session with no
	// matching user.
	ErrNotFound = errors.New("user not found")

	// ErrAccessDenied marks tool use without an entitlement.
	ErrAccessDenied = errors.New("access denied")
)
