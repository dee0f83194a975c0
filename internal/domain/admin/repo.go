package admin

import (
	"context"

	"github.com/clinic/clinic/internal/platform/apierr"
)

// ErrDuplicateEmail is returned when another user of the tenant already has
// the email.
var ErrDuplicateEmail = apierr.Conflict("E-mail já cadastrado")

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByEmail matches the normalised (lower-case) email.
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id string, patch *UserPatch) (*User, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int64, error)
}
