package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrNoCredentials indicates no credentials are stored for the tenant
	ErrNoCredentials = errors.New("no credentials configured")

	// ErrTenantDisabled indicates the tenant exists but is switched off
	ErrTenantDisabled = errors.New("tenant disabled")

	// ErrAuthFailed indicates the upstream rejected the stored credentials
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates the upstream rejected the request parameters
	ErrBadRequest = errors.New("bad request")

	// ErrRefreshInProgress indicates a refresh run is already executing
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrLockUnavailable indicates the lock backend cannot be reached
	ErrLockUnavailable = errors.New("lock backend unavailable")

	// ErrMalformedResponse indicates the upstream returned an unparseable payload
	ErrMalformedResponse = errors.New("malformed upstream response")
)
