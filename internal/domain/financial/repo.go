package financial

import (
	"context"
)

type IncomeRepository interface {
	Create(ctx context.Context, i *Income) error
	GetByID(ctx context.Context, id string) (*Income, error)
	Update(ctx context.Context, id string, patch *IncomePatch) (*Income, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, r DateRange, limit, offset int) ([]*Income, int64, error)
	// Total sums the amount of every income dated within r.
	Total(ctx context.Context, r DateRange) (float64, error)
}

type BillRepository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id string) (*Bill, error)
	Update(ctx context.Context, id string, patch *BillPatch) (*Bill, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f BillFilter, limit, offset int) ([]*Bill, int64, error)
	// TotalsByStatus sums bill amounts per status for bills due within r.
	TotalsByStatus(ctx context.Context, r DateRange) (map[string]float64, error)
}
