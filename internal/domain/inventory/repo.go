package inventory

import (
	"context"
	"time"

	"github.com/clinic/clinic/internal/platform/apierr"
)

// ErrInsufficientStock is returned when an out movement exceeds the stored
// quantity.
var ErrInsufficientStock = apierr.Conflict("Estoque insuficiente")

type StockRepository interface {
	Create(ctx context.Context, s *StockItem) error
	GetByID(ctx context.Context, id string) (*StockItem, error)
	Update(ctx context.Context, id string, patch *StockItemPatch) (*StockItem, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f StockFilter, limit, offset int) ([]*StockItem, int64, error)
	// Adjust adds delta to the item quantity in one atomic write. A negative
	// delta larger than the stored quantity fails with ErrInsufficientStock
	// and leaves the item unchanged.
	Adjust(ctx context.Context, id string, delta float64, now time.Time) (*StockItem, error)
}

type MovementRepository interface {
	Create(ctx context.Context, m *StockMovement) error
	GetByID(ctx context.Context, id string) (*StockMovement, error)
	Search(ctx context.Context, f MovementFilter, limit, offset int) ([]*StockMovement, int64, error)
}
