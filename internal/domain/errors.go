package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrPassInProgress = errors.New("collection pass already in progress")
	ErrLockHeld       = errors.New("lock already held")
	ErrUpstream       = errors.New("upstream fetch failed")

	// Configuration errors. These are fatal to a pass and actionable by an
	// operator, unlike transient fetch or persistence failures.
	ErrMissingCredential   = errors.New("no credential configured for character")
	ErrMissingRefreshToken = errors.New("credential has no refresh token")
	ErrMissingScope        = errors.New("credential lacks required market scope")
)

// IsConfigError reports whether err stems from operator configuration rather
// than transient infrastructure failure. Callers use this to decide between
// alerting an operator and leaving the retry to the external scheduler.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrMissingRefreshToken) ||
		errors.Is(err, ErrMissingScope)
}
