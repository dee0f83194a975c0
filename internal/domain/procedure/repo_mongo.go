package procedure

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/clinic/clinic/internal/platform/db"
)

type procedureRepoMongo struct {
	coll db.Scoped[Procedure]
}

func NewProcedureRepoMongo() ProcedureRepository {
	return &procedureRepoMongo{coll: db.NewScoped[Procedure](db.ModelProcedure)}
}

func (r *procedureRepoMongo) Create(ctx context.Context, p *Procedure) error {
	return r.coll.Insert(ctx, p)
}

func (r *procedureRepoMongo) GetByID(ctx context.Context, id string) (*Procedure, error) {
	return r.coll.Get(ctx, id)
}

func (r *procedureRepoMongo) Update(ctx context.Context, id string, in *ProcedureInput, now time.Time) (*Procedure, error) {
	return r.coll.Update(ctx, id, in.Set(now))
}

func (r *procedureRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *procedureRepoMongo) Search(ctx context.Context, f ProcedureFilter, limit, offset int) ([]*Procedure, int64, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Active != nil {
		filter["active"] = *f.Active
	}
	items, total, err := r.coll.Find(ctx, filter, db.FindOptions{
		Sort:   bson.D{{Key: "createdAt", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}
