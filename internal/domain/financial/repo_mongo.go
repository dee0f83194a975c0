package financial

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/clinic/clinic/internal/platform/db"
)

// =========== Income Mongo Implementation ===========

type incomeRepoMongo struct {
	coll db.Scoped[Income]
}

func NewIncomeRepoMongo() IncomeRepository {
	return &incomeRepoMongo{coll: db.NewScoped[Income](db.ModelIncome)}
}

func (r *incomeRepoMongo) Create(ctx context.Context, i *Income) error {
	return r.coll.Insert(ctx, i)
}

func (r *incomeRepoMongo) GetByID(ctx context.Context, id string) (*Income, error) {
	return r.coll.Get(ctx, id)
}

func (r *incomeRepoMongo) Update(ctx context.Context, id string, patch *IncomePatch) (*Income, error) {
	return r.coll.Update(ctx, id, patch.Set())
}

func (r *incomeRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *incomeRepoMongo) Search(ctx context.Context, dr DateRange, limit, offset int) ([]*Income, int64, error) {
	items, total, err := r.coll.Find(ctx, rangeQuery("date", dr), db.FindOptions{
		Sort:   bson.D{{Key: "date", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

func (r *incomeRepoMongo) Total(ctx context.Context, dr DateRange) (float64, error) {
	var rows []totalRow
	err := r.coll.Aggregate(ctx, []bson.M{
		{"$match": rangeQuery("date", dr)},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}},
	}, &rows)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return rows[0].Total, nil
}

// =========== Bill Mongo Implementation ===========

type billRepoMongo struct {
	coll db.Scoped[Bill]
}

func NewBillRepoMongo() BillRepository {
	return &billRepoMongo{coll: db.NewScoped[Bill](db.ModelBill)}
}

func (r *billRepoMongo) Create(ctx context.Context, b *Bill) error {
	return r.coll.Insert(ctx, b)
}

func (r *billRepoMongo) GetByID(ctx context.Context, id string) (*Bill, error) {
	return r.coll.Get(ctx, id)
}

func (r *billRepoMongo) Update(ctx context.Context, id string, patch *BillPatch) (*Bill, error) {
	return r.coll.Apply(ctx, id, nil, billPipeline(patch))
}

func (r *billRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *billRepoMongo) Search(ctx context.Context, f BillFilter, limit, offset int) ([]*Bill, int64, error) {
	q := rangeQuery("dueDate", f.DateRange)
	if f.Status != "" {
		q["status"] = f.Status
	}
	items, total, err := r.coll.Find(ctx, q, db.FindOptions{
		Sort:   bson.D{{Key: "dueDate", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

func (r *billRepoMongo) TotalsByStatus(ctx context.Context, dr DateRange) (map[string]float64, error) {
	var rows []totalRow
	err := r.coll.Aggregate(ctx, []bson.M{
		{"$match": rangeQuery("dueDate", dr)},
		{"$group": bson.M{"_id": "$status", "total": bson.M{"$sum": "$amount"}}},
	}, &rows)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64, len(rows))
	for _, row := range rows {
		totals[row.ID] = row.Total
	}
	return totals, nil
}

type totalRow struct {
	ID    string  `bson:"_id"`
	Total float64 `bson:"total"`
}

// billPipeline applies the patch in one pipeline stage. A Paid status keeps
// the stored paidAt or stamps the patch time; Pending removes it.
func billPipeline(p *BillPatch) []bson.M {
	set := db.SanitizeSet(p.Set())
	stage := make(bson.M, len(set)+1)
	for k, v := range set {
		stage[k] = bson.M{"$literal": v}
	}
	if p.Status != nil {
		if *p.Status == BillPaid {
			stage["paidAt"] = bson.M{"$ifNull": bson.A{"$paidAt", p.UpdatedAt}}
		} else {
			stage["paidAt"] = "$$REMOVE"
		}
	}
	return []bson.M{{"$set": stage}}
}

func rangeQuery(field string, dr DateRange) bson.M {
	q := bson.M{}
	if dr.From == nil && dr.To == nil {
		return q
	}
	r := bson.M{}
	if dr.From != nil {
		r["$gte"] = *dr.From
	}
	if dr.To != nil {
		r["$lte"] = *dr.To
	}
	q[field] = r
	return q
}
