package inventory

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/clinic/clinic/internal/platform/db"
)

// =========== Stock Mongo Implementation ===========

type stockRepoMongo struct {
	coll db.Scoped[StockItem]
}

func NewStockRepoMongo() StockRepository {
	return &stockRepoMongo{coll: db.NewScoped[StockItem](db.ModelStock)}
}

func (r *stockRepoMongo) Create(ctx context.Context, s *StockItem) error {
	return r.coll.Insert(ctx, s)
}

func (r *stockRepoMongo) GetByID(ctx context.Context, id string) (*StockItem, error) {
	return r.coll.Get(ctx, id)
}

func (r *stockRepoMongo) Update(ctx context.Context, id string, patch *StockItemPatch) (*StockItem, error) {
	return r.coll.Update(ctx, id, patch.Set())
}

func (r *stockRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *stockRepoMongo) Search(ctx context.Context, f StockFilter, limit, offset int) ([]*StockItem, int64, error) {
	items, total, err := r.coll.Find(ctx, stockQuery(f), db.FindOptions{
		Sort:   bson.D{{Key: "name", Value: 1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

func (r *stockRepoMongo) Adjust(ctx context.Context, id string, delta float64, now time.Time) (*StockItem, error) {
	var guard bson.M
	if delta < 0 {
		guard = bson.M{"quantity": bson.M{"$gte": -delta}}
	}
	item, err := r.coll.Inc(ctx, id, guard, "quantity", delta, bson.M{"updatedAt": now})
	if errors.Is(err, db.ErrNotFound) && guard != nil {
		// The guard or the id failed; only a missing item is a 404.
		if _, getErr := r.coll.Get(ctx, id); getErr == nil {
			return nil, ErrInsufficientStock
		}
	}
	return item, err
}

func stockQuery(f StockFilter) bson.M {
	q := bson.M{}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Low {
		q["$expr"] = bson.M{"$lte": bson.A{"$quantity", "$minQuantity"}}
	}
	return q
}

// =========== Movement Mongo Implementation ===========

type movementRepoMongo struct {
	coll db.Scoped[StockMovement]
}

func NewMovementRepoMongo() MovementRepository {
	return &movementRepoMongo{coll: db.NewScoped[StockMovement](db.ModelStockMovement)}
}

func (r *movementRepoMongo) Create(ctx context.Context, m *StockMovement) error {
	return r.coll.Insert(ctx, m)
}

func (r *movementRepoMongo) GetByID(ctx context.Context, id string) (*StockMovement, error) {
	return r.coll.Get(ctx, id)
}

func (r *movementRepoMongo) Search(ctx context.Context, f MovementFilter, limit, offset int) ([]*StockMovement, int64, error) {
	items, total, err := r.coll.Find(ctx, movementQuery(f), db.FindOptions{
		Sort:   bson.D{{Key: "date", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

func movementQuery(f MovementFilter) bson.M {
	q := bson.M{}
	if f.ItemID != "" {
		q["itemId"] = f.ItemID
	}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.From != nil || f.To != nil {
		r := bson.M{}
		if f.From != nil {
			r["$gte"] = *f.From
		}
		if f.To != nil {
			r["$lte"] = *f.To
		}
		q["date"] = r
	}
	return q
}
