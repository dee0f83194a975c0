package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/pkg/timeparam"
)

const rollbackTimeout = 5 * time.Second

type Service struct {
	stock     StockRepository
	movements MovementRepository
	now       func() time.Time
}

func NewService(stock StockRepository, movements MovementRepository) *Service {
	return &Service{stock: stock, movements: movements, now: func() time.Time { return time.Now().UTC() }}
}

// -- Stock items --

func (s *Service) CreateItem(ctx context.Context, in *StockItemInput) (*StockItem, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apierr.Invalid("Nome do item é obrigatório")
	}
	p, err := s.itemPatch(in)
	if err != nil {
		return nil, err
	}
	item := &StockItem{ID: uuid.NewString(), CreatedAt: p.UpdatedAt}
	p.Apply(item)
	if err := s.stock.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) GetItem(ctx context.Context, id string) (*StockItem, error) {
	return s.stock.GetByID(ctx, id)
}

func (s *Service) UpdateItem(ctx context.Context, id string, in *StockItemInput) (*StockItem, error) {
	p, err := s.itemPatch(in)
	if err != nil {
		return nil, err
	}
	return s.stock.Update(ctx, id, p)
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.stock.Delete(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, f StockFilter, limit, offset int) ([]*StockItem, int64, error) {
	return s.stock.Search(ctx, f, limit, offset)
}

func (s *Service) itemPatch(in *StockItemInput) (*StockItemPatch, error) {
	p := &StockItemPatch{
		Name:        in.Name,
		Category:    in.Category,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		MinQuantity: in.MinQuantity,
		UnitCost:    in.UnitCost,
		UpdatedAt:   s.now(),
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, apierr.Invalid("Nome do item é obrigatório")
		}
		p.Name = &name
	}
	for _, f := range []struct {
		v   *float64
		msg string
	}{
		{p.Quantity, "Quantidade inválida"},
		{p.MinQuantity, "Quantidade mínima inválida"},
		{p.UnitCost, "Custo unitário inválido"},
	} {
		if f.v != nil && *f.v < 0 {
			return nil, apierr.Invalid("%s", f.msg)
		}
	}
	if in.ExpiresAt != nil && *in.ExpiresAt != "" {
		at, err := timeparam.Parse(*in.ExpiresAt)
		if err != nil {
			return nil, apierr.Invalid("Data de validade inválida")
		}
		p.ExpiresAt = &at
	}
	return p, nil
}

// -- Movements --

// RecordMovement adjusts the item quantity and then stores the movement. If
// the movement cannot be stored the adjustment is reversed.
func (s *Service) RecordMovement(ctx context.Context, in *MovementInput) (*StockMovement, *StockItem, error) {
	if in.ItemID == nil || *in.ItemID == "" {
		return nil, nil, apierr.Invalid("Item é obrigatório")
	}
	if in.Type == nil || (*in.Type != MovementIn && *in.Type != MovementOut) {
		return nil, nil, apierr.Invalid("Tipo de movimentação inválido")
	}
	if in.Quantity == nil || *in.Quantity <= 0 {
		return nil, nil, apierr.Invalid("Quantidade deve ser maior que zero")
	}
	now := s.now()
	m := &StockMovement{
		ID:       uuid.NewString(),
		ItemID:   *in.ItemID,
		Type:     *in.Type,
		Quantity: *in.Quantity,
		Date:     now,
		UserID:   auth.UserIDFromContext(ctx),
	}
	if in.Reason != nil {
		m.Reason = strings.TrimSpace(*in.Reason)
	}
	if in.Date != nil && *in.Date != "" {
		d, err := timeparam.Parse(*in.Date)
		if err != nil {
			return nil, nil, apierr.Invalid("Data inválida")
		}
		m.Date = d
	}

	delta := m.Quantity
	if m.Type == MovementOut {
		delta = -delta
	}
	item, err := s.stock.Adjust(ctx, m.ItemID, delta, now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.movements.Create(ctx, m); err != nil {
		// The request context may already be done; the quantity must still be
		// restored.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if _, rbErr := s.stock.Adjust(rbCtx, m.ItemID, -delta, now); rbErr != nil {
			return nil, nil, fmt.Errorf("record movement: %w (quantity rollback failed: %v)", err, rbErr)
		}
		return nil, nil, err
	}
	return m, item, nil
}

func (s *Service) GetMovement(ctx context.Context, id string) (*StockMovement, error) {
	return s.movements.GetByID(ctx, id)
}

func (s *Service) ListMovements(ctx context.Context, f MovementFilter, limit, offset int) ([]*StockMovement, int64, error) {
	if f.Type != "" && f.Type != MovementIn && f.Type != MovementOut {
		return nil, 0, apierr.Invalid("Tipo de movimentação inválido")
	}
	return s.movements.Search(ctx, f, limit, offset)
}
