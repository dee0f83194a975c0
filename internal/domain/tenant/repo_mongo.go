package tenant

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/clinic/clinic/internal/platform/db"
)

// MainConnector opens the administrative connection. *db.Manager
// implements it.
type MainConnector interface {
	Main(ctx context.Context) (*db.Conn, error)
}

type directoryMongo struct {
	main MainConnector
}

// NewDirectoryMongo returns the directory stored in the main database's
// tenants collection.
func NewDirectoryMongo(main MainConnector) Directory {
	return &directoryMongo{main: main}
}

func (d *directoryMongo) collection(ctx context.Context) (*mongo.Collection, *db.Conn, error) {
	conn, err := d.main.Main(ctx)
	if err != nil {
		return nil, nil, err
	}
	model, err := conn.Model(db.ModelTenant)
	if err != nil {
		return nil, nil, err
	}
	return model.Collection(), conn, nil
}

func (d *directoryMongo) Create(ctx context.Context, t *Tenant) error {
	coll, conn, err := d.collection(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	if _, err := coll.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrExists
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (d *directoryMongo) Get(ctx context.Context, id string) (*Tenant, error) {
	coll, conn, err := d.collection(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	var t Tenant
	err = coll.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (d *directoryMongo) List(ctx context.Context) ([]Tenant, error) {
	return d.find(ctx, bson.M{})
}

func (d *directoryMongo) ActiveIDs(ctx context.Context) ([]string, error) {
	tenants, err := d.find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(tenants))
	for i, t := range tenants {
		ids[i] = t.ID
	}
	return ids, nil
}

func (d *directoryMongo) find(ctx context.Context, filter bson.M) ([]Tenant, error) {
	coll, conn, err := d.collection(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := conn.WithTimeout(ctx)
	defer cancel()

	cur, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	tenants := make([]Tenant, 0)
	if err := cur.All(ctx, &tenants); err != nil {
		return nil, fmt.Errorf("decode tenants: %w", err)
	}
	return tenants, nil
}
