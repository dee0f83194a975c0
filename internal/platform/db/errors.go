package db

import "errors"

var (
	// ErrNotFound is returned when no document matches tenant and id.
	ErrNotFound = errors.New("record not found")

	ErrTenantRequired = errors.New("tenant is required")
	ErrInvalidTenant  = errors.New("invalid tenant identifier")
	ErrUnknownModel   = errors.New("unknown model")
	ErrManagerClosed  = errors.New("connection manager closed")

	// ErrNoTenant is returned by scoped access when the context carries no
	// resolved tenant.
	ErrNoTenant = errors.New("no tenant on context")
)
