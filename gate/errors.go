package gate

import "errors"

// Sentinel errors returned by HybridGate.Authorize and ParsePermission.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNoProfile           = errors.New("no profile assigned")
	ErrMalformedPermission = errors.New("malformed permission")
)
