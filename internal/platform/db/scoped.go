package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TenantStamped is implemented by documents that store their tenant in a
// tenantPath field.
type TenantStamped interface {
	SetTenantPath(tenant string)
}

// FindOptions controls ordering and paging of Scoped.Find.
type FindOptions struct {
	Sort   bson.D
	Limit  int64
	Offset int64
}

// Scoped gives access to one model's collection on the tenant connection
// carried by the context. Every filter it sends includes tenantPath, so a
// query built without it still cannot reach another tenant's documents.
type Scoped[T any] struct {
	model string
}

// NewScoped returns scoped access to the named model.
func NewScoped[T any](model string) Scoped[T] {
	return Scoped[T]{model: model}
}

// ScopeFilter copies filter and pins tenantPath to tenant, overriding any
// caller-supplied value.
func ScopeFilter(tenant string, filter bson.M) bson.M {
	scoped := make(bson.M, len(filter)+1)
	for k, v := range filter {
		scoped[k] = v
	}
	scoped["tenantPath"] = tenant
	return scoped
}

// SanitizeSet drops keys an update may never change.
func SanitizeSet(set bson.M) bson.M {
	out := make(bson.M, len(set))
	for k, v := range set {
		switch k {
		case "_id", "id", "tenantPath":
			continue
		}
		out[k] = v
	}
	return out
}

func (s Scoped[T]) collection(ctx context.Context) (*mongo.Collection, *Conn, error) {
	conn := ConnFromContext(ctx)
	if conn == nil || conn.Tenant() == "" {
		return nil, nil, ErrNoTenant
	}
	if conn.Database() == nil {
		return nil, nil, fmt.Errorf("connection for %q has no database", conn.Tenant())
	}
	model, err := conn.Model(s.model)
	if err != nil {
		return nil, nil, err
	}
	return model.Collection(), conn, nil
}

// Find returns the matching page and the total number of matches.
func (s Scoped[T]) Find(ctx context.Context, filter bson.M, fo FindOptions) ([]T, int64, error) {
	total, err := s.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return nil, 0, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	f := ScopeFilter(conn.Tenant(), filter)

	opts := options.Find()
	if len(fo.Sort) > 0 {
		opts.SetSort(fo.Sort)
	}
	if fo.Limit > 0 {
		opts.SetLimit(fo.Limit)
	}
	if fo.Offset > 0 {
		opts.SetSkip(fo.Offset)
	}

	cur, err := coll.Find(ctx, f, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find %s: %w", s.model, err)
	}
	items := make([]T, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", s.model, err)
	}
	return items, total, nil
}

// Count returns the number of tenant documents matching filter.
func (s Scoped[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	n, err := coll.CountDocuments(ctx, ScopeFilter(conn.Tenant(), filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", s.model, err)
	}
	return n, nil
}

// Get returns the document with id, or ErrNotFound.
func (s Scoped[T]) Get(ctx context.Context, id string) (*T, error) {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	var doc T
	err = coll.FindOne(ctx, ScopeFilter(conn.Tenant(), bson.M{"_id": id})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.model, err)
	}
	return &doc, nil
}

// FindOne returns the first document matching filter, or ErrNotFound.
func (s Scoped[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	var doc T
	err = coll.FindOne(ctx, ScopeFilter(conn.Tenant(), filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.model, err)
	}
	return &doc, nil
}

// Insert stamps doc with the context tenant and stores it. Duplicate keys
// can be detected with mongo.IsDuplicateKeyError.
func (s Scoped[T]) Insert(ctx context.Context, doc *T) error {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return err
	}
	if st, ok := any(doc).(TenantStamped); ok {
		st.SetTenantPath(conn.Tenant())
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert %s: %w", s.model, err)
	}
	return nil
}

// Update applies set to the document with id and returns the result.
func (s Scoped[T]) Update(ctx context.Context, id string, set bson.M) (*T, error) {
	set = SanitizeSet(set)
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	return s.Apply(ctx, id, nil, bson.M{"$set": set})
}

// Apply runs an arbitrary update, either an update document or an
// aggregation pipeline, on the document with id when it also matches guard.
// ErrNotFound covers both a missing document and a failed guard.
func (s Scoped[T]) Apply(ctx context.Context, id string, guard bson.M, update any) (*T, error) {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	filter := ScopeFilter(conn.Tenant(), guard)
	filter["_id"] = id

	var doc T
	err = coll.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.model, err)
	}
	return &doc, nil
}

// Inc atomically adds delta to field on the document with id when it also
// matches guard.
func (s Scoped[T]) Inc(ctx context.Context, id string, guard bson.M, field string, delta float64, set bson.M) (*T, error) {
	update := bson.M{"$inc": bson.M{field: delta}}
	if set = SanitizeSet(set); len(set) > 0 {
		update["$set"] = set
	}
	return s.Apply(ctx, id, guard, update)
}

// Delete removes the document with id, or returns ErrNotFound.
func (s Scoped[T]) Delete(ctx context.Context, id string) error {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	res, err := coll.DeleteOne(ctx, ScopeFilter(conn.Tenant(), bson.M{"_id": id}))
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.model, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Aggregate runs pipeline after a leading tenant $match and decodes every
// result into out.
func (s Scoped[T]) Aggregate(ctx context.Context, pipeline []bson.M, out any) error {
	coll, conn, err := s.collection(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	stages := make([]bson.M, 0, len(pipeline)+1)
	stages = append(stages, bson.M{"$match": bson.M{"tenantPath": conn.Tenant()}})
	stages = append(stages, pipeline...)

	cur, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", s.model, err)
	}
	if err := cur.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s aggregate: %w", s.model, err)
	}
	return nil
}

// Ptrs returns pointers to the elements of items.
func Ptrs[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
