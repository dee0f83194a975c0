package admin

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clinic/clinic/internal/platform/db"
)

type userRepoMongo struct {
	coll db.Scoped[User]
}

// NewUserRepoMongo returns a repository over the tenant's users collection.
// Email uniqueness relies on the UniqueTenantEmail index.
func NewUserRepoMongo() UserRepository {
	return &userRepoMongo{coll: db.NewScoped[User](db.ModelUser)}
}

func (r *userRepoMongo) Create(ctx context.Context, u *User) error {
	return duplicate(r.coll.Insert(ctx, u))
}

func (r *userRepoMongo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.coll.Get(ctx, id)
}

func (r *userRepoMongo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.coll.FindOne(ctx, bson.M{"email": email})
}

func (r *userRepoMongo) Update(ctx context.Context, id string, patch *UserPatch) (*User, error) {
	u, err := r.coll.Update(ctx, id, patch.Set())
	return u, duplicate(err)
}

func (r *userRepoMongo) Delete(ctx context.Context, id string) error {
	return r.coll.Delete(ctx, id)
}

func (r *userRepoMongo) Search(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int64, error) {
	q := bson.M{}
	if f.Role != "" {
		q["role"] = f.Role
	}
	if f.Active != nil {
		q["active"] = *f.Active
	}
	if f.Query != "" {
		pattern := regexp.QuoteMeta(f.Query)
		q["$or"] = bson.A{
			bson.M{"name": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	items, total, err := r.coll.Find(ctx, q, db.FindOptions{
		Sort:   bson.D{{Key: "name", Value: 1}},
		Limit:  int64(limit),
		Offset: int64(offset),
	})
	if err != nil {
		return nil, 0, err
	}
	return db.Ptrs(items), total, nil
}

func duplicate(err error) error {
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateEmail
	}
	return err
}
