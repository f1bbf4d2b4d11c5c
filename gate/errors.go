package gate

import "errors"

// Sentinel errors returned by HybridGate.Authorize.
var (
	// ErrUnauthorized means there is no authenticated subject.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoProfile means the subject has no profile and therefore no permissions.
	ErrNoProfile = errors.New("no profile assigned")
	// ErrForbidden means the profile lacks the permission or a policy denied access.
	ErrForbidden = errors.New("forbidden")
)
