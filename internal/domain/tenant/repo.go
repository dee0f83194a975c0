package tenant

import (
	"context"

	"github.com/clinic/clinic/internal/platform/apierr"
)

// ErrExists is returned when the directory already lists the identifier.
var ErrExists = apierr.Conflict("tenant already exists")

// Directory is the list of clinics kept in the main database.
type Directory interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	// ActiveIDs returns the identifiers of active tenants, sorted.
	ActiveIDs(ctx context.Context) ([]string, error)
}
