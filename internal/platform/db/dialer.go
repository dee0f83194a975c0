package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDialer opens one client per database against the server named by
// BaseURI, replacing the URI's database path with the requested database.
type MongoDialer struct {
	BaseURI        string
	MaxPoolSize    uint64
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
	AppName        string
}

// Dial connects and pings before returning, so a cached Conn is known good.
func (d MongoDialer) Dial(ctx context.Context, tenant, database string) (*Conn, error) {
	uri, err := TenantURI(d.BaseURI, database)
	if err != nil {
		return nil, err
	}

	opts := options.Client().ApplyURI(uri)
	if d.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(d.MaxPoolSize)
	}
	if d.ConnectTimeout > 0 {
		opts.SetConnectTimeout(d.ConnectTimeout)
		opts.SetServerSelectionTimeout(d.ConnectTimeout)
	}
	if d.AppName != "" {
		opts.SetAppName(d.AppName)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", redactURI(uri), err)
	}

	pingCtx := ctx
	if d.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, d.ConnectTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping %s: %w", redactURI(uri), err)
	}

	return NewConn(tenant, client, client.Database(database), d.OpTimeout), nil
}
