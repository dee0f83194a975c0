package scheduling

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/clinic/clinic/internal/platform/db"
)

type appointmentRepoMongo struct {
	coll db.Scoped[Appointment]
}

// NewAppointmentRepoMongo returns a repository over the tenant's
// appointments collection.
func NewAppointmentRepoMongo() AppointmentRepository {
	return &appointmentRepoMongo{coll: db.NewScoped[Appointment](db.ModelAppointment)}
}

func (r *appointmentRepoMongo) Create(ctx context.Context, a *Appointment) error {
	return r.coll.Insert(ctx, a)
}

func (r *appointmentRepoMongo) GetByID(ctx context.Context, id string) (*Appointment, error) {
	return r.coll.Get(ctx, id)
}

func (r *appointmentRepoMongo) Update(ctx context.Context, id string, patch *AppointmentPatch, meeting Meeting) (*Appointment, error) {
	return r.coll.Apply(ctx, id, nil, provisioningPipeline(patch.Set(), meeting))
}

func (r *appointmentRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *appointmentRepoMongo) Search(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int64, error) {
	items, total, err := r.coll.Find(ctx, appointmentQuery(f), db.FindOptions{
		Sort:   bson.D{{Key: "date", Value: -1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

// provisioningPipeline builds a single-stage update pipeline that applies set
// and fills meetingId/meetingUrl only when the stored URL is missing or
// empty. Values are wrapped in $literal so user text starting with '$' is
// never read as a field path.
func provisioningPipeline(set bson.M, meeting Meeting) []bson.M {
	stage := make(bson.M, len(set)+2)
	for k, v := range db.SanitizeSet(set) {
		stage[k] = bson.M{"$literal": v}
	}
	hasURL := bson.M{"$gt": bson.A{
		bson.M{"$strLenCP": bson.M{"$ifNull": bson.A{"$meetingUrl", ""}}},
		0,
	}}
	stage["meetingId"] = bson.M{"$cond": bson.A{hasURL, "$meetingId", bson.M{"$literal": meeting.ID}}}
	stage["meetingUrl"] = bson.M{"$cond": bson.A{hasURL, "$meetingUrl", bson.M{"$literal": meeting.URL}}}
	return []bson.M{{"$set": stage}}
}

func appointmentQuery(f AppointmentFilter) bson.M {
	q := bson.M{}
	if f.Professional != "" {
		q["professional"] = f.Professional
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.PatientID != "" {
		q["patientId"] = f.PatientID
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
