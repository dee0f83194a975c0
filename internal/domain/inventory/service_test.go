package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/db/dbtest"
)

// =========== Mock Repositories ===========

type mockStockRepo struct {
	store *dbtest.Store[StockItem]
}

func newMockStockRepo() *mockStockRepo {
	return &mockStockRepo{store: dbtest.NewStore(func(s *StockItem) string { return s.ID })}
}

func (m *mockStockRepo) Create(ctx context.Context, s *StockItem) error {
	return m.store.Insert(ctx, s)
}

func (m *mockStockRepo) GetByID(ctx context.Context, id string) (*StockItem, error) {
	return m.store.Get(ctx, id)
}

func (m *mockStockRepo) Update(ctx context.Context, id string, p *StockItemPatch) (*StockItem, error) {
	return m.store.Update(ctx, id, func(s *StockItem) error {
		p.Apply(s)
		return nil
	})
}

func (m *mockStockRepo) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

func (m *mockStockRepo) Search(ctx context.Context, f StockFilter, limit, offset int) ([]*StockItem, int64, error) {
	return m.store.List(ctx, func(s *StockItem) bool {
		return (f.Category == "" || s.Category == f.Category) && (!f.Low || s.Low())
	}, func(a, b *StockItem) bool { return a.Name < b.Name }, limit, offset)
}

func (m *mockStockRepo) Adjust(ctx context.Context, id string, delta float64, now time.Time) (*StockItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.store.Update(ctx, id, func(s *StockItem) error {
		if s.Quantity+delta < 0 {
			return ErrInsufficientStock
		}
		s.Quantity += delta
		s.UpdatedAt = now
		return nil
	})
}

type mockMovementRepo struct {
	store *dbtest.Store[StockMovement]
	fail  error
	// beforeFail runs before fail is returned, e.g. to cancel the request.
	beforeFail func()
}

func newMockMovementRepo() *mockMovementRepo {
	return &mockMovementRepo{store: dbtest.NewStore(func(m *StockMovement) string { return m.ID })}
}

func (m *mockMovementRepo) Create(ctx context.Context, mv *StockMovement) error {
	if m.fail != nil {
		if m.beforeFail != nil {
			m.beforeFail()
		}
		return m.fail
	}
	return m.store.Insert(ctx, mv)
}

func (m *mockMovementRepo) GetByID(ctx context.Context, id string) (*StockMovement, error) {
	return m.store.Get(ctx, id)
}

func (m *mockMovementRepo) Search(ctx context.Context, f MovementFilter, limit, offset int) ([]*StockMovement, int64, error) {
	return m.store.List(ctx, func(mv *StockMovement) bool {
		return (f.ItemID == "" || mv.ItemID == f.ItemID) && (f.Type == "" || mv.Type == f.Type)
	}, func(a, b *StockMovement) bool { return a.Date.After(b.Date) }, limit, offset)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func newItem(t *testing.T, svc *Service, ctx context.Context, name string, qty, min float64) *StockItem {
	t.Helper()
	item, err := svc.CreateItem(ctx, &StockItemInput{Name: strPtr(name), Quantity: floatPtr(qty), MinQuantity: floatPtr(min)})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

// =========== Stock ===========

func TestCreateItem_Validation(t *testing.T) {
	svc := NewService(newMockStockRepo(), newMockMovementRepo())
	ctx := dbtest.TenantContext("acme")
	var ve *apierr.ValidationError
	if _, err := svc.CreateItem(ctx, &StockItemInput{}); !errors.As(err, &ve) {
		t.Errorf("expected validation error without name, got %v", err)
	}
	if _, err := svc.CreateItem(ctx, &StockItemInput{Name: strPtr("Luvas"), Quantity: floatPtr(-1)}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for negative quantity, got %v", err)
	}
	if _, err := svc.CreateItem(ctx, &StockItemInput{Name: strPtr("Luvas"), ExpiresAt: strPtr("amanhã")}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for bad expiry, got %v", err)
	}
}

func TestListItems_Low(t *testing.T) {
	svc := NewService(newMockStockRepo(), newMockMovementRepo())
	ctx := dbtest.TenantContext("acme")
	newItem(t, svc, ctx, "Gaze", 2, 5)
	newItem(t, svc, ctx, "Luvas", 5, 5)
	newItem(t, svc, ctx, "Seringas", 50, 10)

	items, total, err := svc.ListItems(ctx, StockFilter{Low: true}, 100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || items[0].Name != "Gaze" || items[1].Name != "Luvas" {
		t.Errorf("expected Gaze and Luvas at or below minimum, got %d", total)
	}
}

func TestStockQuery_Low(t *testing.T) {
	q := stockQuery(StockFilter{Low: true, Category: "EPI"})
	if q["category"] != "EPI" {
		t.Errorf("expected category filter, got %v", q)
	}
	expr, ok := q["$expr"].(bson.M)
	if !ok || expr["$lte"] == nil {
		t.Errorf("expected $expr $lte, got %v", q["$expr"])
	}
}

// =========== Movements ===========

func TestRecordMovement_InAndOut(t *testing.T) {
	svc := NewService(newMockStockRepo(), newMockMovementRepo())
	ctx := auth.WithClaims(dbtest.TenantContext("acme"), &auth.SessionClaims{UserID: "u-7", Tenant: "acme", Role: auth.RoleUser})
	item := newItem(t, svc, ctx, "Luvas", 10, 2)

	m, after, err := svc.RecordMovement(ctx, &MovementInput{ItemID: &item.ID, Type: strPtr(MovementIn), Quantity: floatPtr(5)})
	if err != nil {
		t.Fatal(err)
	}
	if after.Quantity != 15 || m.UserID != "u-7" || m.TenantPath != "acme" {
		t.Errorf("unexpected result: item %+v movement %+v", after, m)
	}

	_, after, err = svc.RecordMovement(ctx, &MovementInput{ItemID: &item.ID, Type: strPtr(MovementOut), Quantity: floatPtr(15), Reason: strPtr("uso")})
	if err != nil {
		t.Fatal(err)
	}
	if after.Quantity != 0 {
		t.Errorf("expected 0 left, got %v", after.Quantity)
	}
}

func TestRecordMovement_Insufficient(t *testing.T) {
	movements := newMockMovementRepo()
	svc := NewService(newMockStockRepo(), movements)
	ctx := dbtest.TenantContext("acme")
	item := newItem(t, svc, ctx, "Gaze", 3, 0)

	_, _, err := svc.RecordMovement(ctx, &MovementInput{ItemID: &item.ID, Type: strPtr(MovementOut), Quantity: floatPtr(4)})
	if !errors.Is(err, apierr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, _ := svc.GetItem(ctx, item.ID)
	if got.Quantity != 3 {
		t.Errorf("expected quantity unchanged, got %v", got.Quantity)
	}
	if len(movements.store.All()) != 0 {
		t.Error("expected no movement stored")
	}
}

func TestRecordMovement_Validation(t *testing.T) {
	svc := NewService(newMockStockRepo(), newMockMovementRepo())
	ctx := dbtest.TenantContext("acme")
	id := "x"
	for name, in := range map[string]*MovementInput{
		"no item":       {Type: strPtr(MovementIn), Quantity: floatPtr(1)},
		"bad type":      {ItemID: &id, Type: strPtr("transfer"), Quantity: floatPtr(1)},
		"zero quantity": {ItemID: &id, Type: strPtr(MovementIn), Quantity: floatPtr(0)},
	} {
		var ve *apierr.ValidationError
		if _, _, err := svc.RecordMovement(ctx, in); !errors.As(err, &ve) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	if _, _, err := svc.RecordMovement(ctx, &MovementInput{ItemID: &id, Type: strPtr(MovementIn), Quantity: floatPtr(1)}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestRecordMovement_RollsBackOnStoreFailure(t *testing.T) {
	movements := newMockMovementRepo()
	svc := NewService(newMockStockRepo(), movements)
	ctx := dbtest.TenantContext("acme")
	item := newItem(t, svc, ctx, "Gaze", 3, 0)

	movements.fail = errors.New("write failed")
	if _, _, err := svc.RecordMovement(ctx, &MovementInput{ItemID: &item.ID, Type: strPtr(MovementOut), Quantity: floatPtr(2)}); err == nil {
		t.Fatal("expected error")
	}
	got, _ := svc.GetItem(ctx, item.ID)
	if got.Quantity != 3 {
		t.Errorf("expected quantity restored to 3, got %v", got.Quantity)
	}
}

func TestRecordMovement_RollsBackAfterRequestCanceled(t *testing.T) {
	movements := newMockMovementRepo()
	svc := NewService(newMockStockRepo(), movements)
	base := dbtest.TenantContext("acme")
	item := newItem(t, svc, base, "Seringas", 10, 0)

	ctx, cancel := context.WithCancel(base)
	defer cancel()
	movements.fail = context.DeadlineExceeded
	movements.beforeFail = cancel

	_, _, err := svc.RecordMovement(ctx, &MovementInput{ItemID: &item.ID, Type: strPtr(MovementOut), Quantity: floatPtr(3)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the store error, got %v", err)
	}
	got, err := svc.GetItem(base, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Quantity != 10 {
		t.Errorf("expected quantity restored to 10, got %v", got.Quantity)
	}
}

func TestRecordMovement_ConcurrentOutNeverNegative(t *testing.T) {
	svc := NewService(newMockStockRepo(), newMockMovementRepo())
	ctx := dbtest.TenantContext("acme")
	item := newItem(t, svc, ctx, "Máscaras", 10, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := svc.RecordMovement(ctx, &MovementInput{ItemID: &item.ID, Type: strPtr(MovementOut), Quantity: floatPtr(1)}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := svc.GetItem(ctx, item.ID)
	if ok != 10 || got.Quantity != 0 {
		t.Errorf("expected 10 successful withdrawals and 0 left, got %d and %v", ok, got.Quantity)
	}
}
