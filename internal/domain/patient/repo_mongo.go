package patient

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/clinic/clinic/internal/platform/db"
)

type patientRepoMongo struct {
	coll db.Scoped[Patient]
}

func NewPatientRepoMongo() PatientRepository {
	return &patientRepoMongo{coll: db.NewScoped[Patient](db.ModelPatient)}
}

func (r *patientRepoMongo) Create(ctx context.Context, p *Patient) error {
	return r.coll.Insert(ctx, p)
}

func (r *patientRepoMongo) GetByID(ctx context.Context, id string) (*Patient, error) {
	return r.coll.Get(ctx, id)
}

func (r *patientRepoMongo) Update(ctx context.Context, id string, patch *PatientPatch) (*Patient, error) {
	return r.coll.Update(ctx, id, patch.Set())
}

func (r *patientRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *patientRepoMongo) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int64, error) {
	items, total, err := r.coll.Find(ctx, nameQuery(q), db.FindOptions{
		Sort:   bson.D{{Key: "createdAt", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

// nameQuery escapes q so it is matched literally.
func nameQuery(q string) bson.M {
	if q == "" {
		return bson.M{}
	}
	return bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}}
}

type documentRepoMongo struct {
	coll db.Scoped[Document]
}

func NewDocumentRepoMongo() DocumentRepository {
	return &documentRepoMongo{coll: db.NewScoped[Document](db.ModelDocument)}
}

func (r *documentRepoMongo) Create(ctx context.Context, d *Document) error {
	return r.coll.Insert(ctx, d)
}

func (r *documentRepoMongo) GetByID(ctx context.Context, id string) (*Document, error) {
	return r.coll.Get(ctx, id)
}

func (r *documentRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *documentRepoMongo) List(ctx context.Context, patientID string, limit, offset int) ([]*Document, int64, error) {
	filter := bson.M{}
	if patientID != "" {
		filter["patientId"] = patientID
	}
	items, total, err := r.coll.Find(ctx, filter, db.FindOptions{
		Sort:   bson.D{{Key: "uploadedAt", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}
