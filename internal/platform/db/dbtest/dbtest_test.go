package dbtest

import (
	"context"
	"errors"
	"testing"

	"github.com/clinic/clinic/internal/platform/db"
)

type item struct {
	ID         string
	TenantPath string
	N          int
}

func (i *item) SetTenantPath(t string) { i.TenantPath = t }

func newItemStore() *Store[item] {
	return NewStore(func(i *item) string { return i.ID })
}

func TestStore_TenantPartition(t *testing.T) {
	s := newItemStore()
	acme, globex := TenantContext("acme"), TenantContext("globex")

	_ = s.Insert(acme, &item{ID: "1", N: 1})
	_ = s.Insert(globex, &item{ID: "2", N: 2})

	got, err := s.Get(acme, "1")
	if err != nil || got.TenantPath != "acme" {
		t.Fatalf("unexpected %v %v", got, err)
	}
	if _, err := s.Get(globex, "1"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound across tenants, got %v", err)
	}
	if err := s.Delete(globex, "1"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound on cross-tenant delete, got %v", err)
	}
	if len(s.All()) != 2 {
		t.Errorf("expected 2 records overall")
	}
}

func TestStore_NoTenant(t *testing.T) {
	if err := newItemStore().Insert(context.Background(), &item{ID: "1"}); !errors.Is(err, db.ErrNoTenant) {
		t.Errorf("expected ErrNoTenant, got %v", err)
	}
}

func TestStore_UpdateAtomic(t *testing.T) {
	s := newItemStore()
	ctx := TenantContext("acme")
	_ = s.Insert(ctx, &item{ID: "1", N: 5})

	_, err := s.Update(ctx, "1", func(i *item) error {
		i.N = 100
		return errors.New("rejected")
	})
	if err == nil {
		t.Fatal("expected fn error")
	}
	got, _ := s.Get(ctx, "1")
	if got.N != 5 {
		t.Errorf("failed update must not persist, got %d", got.N)
	}
}

func TestStore_ListPaging(t *testing.T) {
	s := newItemStore()
	ctx := TenantContext("acme")
	for i, id := range []string{"a", "b", "c", "d"} {
		_ = s.Insert(ctx, &item{ID: id, N: i})
	}
	page, total, err := s.List(ctx, func(i *item) bool { return i.N > 0 }, func(a, b *item) bool { return a.N > b.N }, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 2 || page[0].N != 2 || page[1].N != 1 {
		t.Errorf("unexpected page %v total %d", page, total)
	}
	if page, _, _ := s.List(ctx, nil, nil, 10, 10); len(page) != 0 {
		t.Errorf("expected empty page past the end")
	}
}
