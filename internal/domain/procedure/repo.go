package procedure

import (
	"context"
	"time"
)

type ProcedureRepository interface {
	Create(ctx context.Context, p *Procedure) error
	GetByID(ctx context.Context, id string) (*Procedure, error)
	Update(ctx context.Context, id string, in *ProcedureInput, now time.Time) (*Procedure, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, f ProcedureFilter, limit, offset int) ([]*Procedure, int64, error)
}
