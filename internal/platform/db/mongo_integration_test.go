//go:build integration

package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
)

// Run with: MONGODB_TEST_URI=mongodb://localhost:27017 go test -tags integration ./internal/platform/db/
func integrationManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	suffix := uuid.NewString()[:8]
	mgr := NewManager(MongoDialer{BaseURI: uri, ConnectTimeout: 5 * time.Second, OpTimeout: 5 * time.Second}, Options{
		MainDatabase:  "main_it_" + suffix,
		EnsureIndexes: true,
		Logger:        zerolog.Nop(),
	})
	t1, t2 := "it_a_"+suffix, "it_b_"+suffix

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, id := range []string{t1, t2} {
			if conn, err := mgr.Connect(ctx, id); err == nil {
				_ = conn.Database().Drop(ctx)
			}
		}
		if main, err := mgr.Main(ctx); err == nil {
			_ = main.Database().Drop(ctx)
		}
		_ = mgr.Close(ctx)
	})
	return mgr, t1, t2
}

func TestIntegration_SeparateDatabasesPerTenant(t *testing.T) {
	mgr, t1, t2 := integrationManager(t)
	ctx := context.Background()

	c1, err := mgr.Connect(ctx, t1)
	if err != nil {
		t.Fatalf("connect %s: %v", t1, err)
	}
	c2, err := mgr.Connect(ctx, t2)
	if err != nil {
		t.Fatalf("connect %s: %v", t2, err)
	}
	if c1 == c2 || c1.Database().Name() == c2.Database().Name() {
		t.Fatal("tenants must get distinct databases")
	}

	again, err := mgr.Connect(ctx, t1)
	if err != nil || again != c1 {
		t.Fatalf("expected cached connection, got %p (%v)", again, err)
	}

	docs := NewScoped[scopedDoc](ModelProcedure)
	ctx1, ctx2 := WithConn(ctx, c1), WithConn(ctx, c2)

	doc := &scopedDoc{ID: uuid.NewString()}
	if err := docs.Insert(ctx1, doc); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if doc.TenantPath != t1 {
		t.Errorf("expected tenantPath %s, got %s", t1, doc.TenantPath)
	}

	if _, err := docs.Get(ctx2, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("tenant %s must not see %s data, got %v", t2, t1, err)
	}
	items, total, err := docs.Find(ctx2, bson.M{}, FindOptions{})
	if err != nil || total != 0 || len(items) != 0 {
		t.Errorf("expected empty list for %s, got %d (%v)", t2, total, err)
	}
	if _, err := docs.Update(ctx2, doc.ID, bson.M{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant update must be not found, got %v", err)
	}
	if err := docs.Delete(ctx2, doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-tenant delete must be not found, got %v", err)
	}

	got, err := docs.Get(ctx1, doc.ID)
	if err != nil || got.TenantPath != t1 {
		t.Errorf("owner tenant must still read the document, got %+v (%v)", got, err)
	}
}

func TestIntegration_InsertForcesTenantPath(t *testing.T) {
	mgr, t1, _ := integrationManager(t)
	ctx := context.Background()

	c1, err := mgr.Connect(ctx, t1)
	if err != nil {
		t.Fatal(err)
	}
	ctx1 := WithConn(ctx, c1)
	docs := NewScoped[scopedDoc](ModelProcedure)

	doc := &scopedDoc{ID: uuid.NewString(), TenantPath: "someone-else"}
	if err := docs.Insert(ctx1, doc); err != nil {
		t.Fatal(err)
	}
	n, err := docs.Count(ctx1, bson.M{"_id": doc.ID})
	if err != nil || n != 1 {
		t.Fatalf("expected document under %s, count=%d err=%v", t1, n, err)
	}
}

func TestIntegration_ConcurrentFirstConnectDialsOnce(t *testing.T) {
	mgr, t1, _ := integrationManager(t)
	ctx := context.Background()

	const n = 16
	conns := make(chan *Conn, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			c, err := mgr.Connect(ctx, t1)
			if err != nil {
				errs <- err
				return
			}
			conns <- c
		}()
	}

	var first *Conn
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("connect: %v", err)
		case c := <-conns:
			if first == nil {
				first = c
			} else if c != first {
				t.Fatalf("expected one shared connection, got %p and %p", first, c)
			}
		}
	}
	if s := mgr.Stats(); s.Misses != 1 {
		t.Errorf("expected one dial, stats %+v", s)
	}
}
