package financial

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/pkg/timeparam"
)

type Service struct {
	incomes IncomeRepository
	bills   BillRepository
	now     func() time.Time
}

func NewService(incomes IncomeRepository, bills BillRepository) *Service {
	return &Service{incomes: incomes, bills: bills, now: func() time.Time { return time.Now().UTC() }}
}

// -- Income --

func (s *Service) CreateIncome(ctx context.Context, in *IncomeInput) (*Income, error) {
	if missing := missingFields(
		field{"description", in.Description},
		field{"date", in.Date},
	); in.Amount == nil || len(missing) > 0 {
		if in.Amount == nil {
			missing = append(missing, "amount")
		}
		return nil, apierr.Invalid("Campos obrigatórios ausentes: %s", strings.Join(missing, ", "))
	}
	p, err := s.incomePatch(in)
	if err != nil {
		return nil, err
	}
	i := &Income{ID: uuid.NewString(), CreatedAt: p.UpdatedAt}
	p.Apply(i)
	if err := s.incomes.Create(ctx, i); err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Service) GetIncome(ctx context.Context, id string) (*Income, error) {
	return s.incomes.GetByID(ctx, id)
}

func (s *Service) UpdateIncome(ctx context.Context, id string, in *IncomeInput) (*Income, error) {
	p, err := s.incomePatch(in)
	if err != nil {
		return nil, err
	}
	return s.incomes.Update(ctx, id, p)
}

func (s *Service) DeleteIncome(ctx context.Context, id string) error {
	return s.incomes.Delete(ctx, id)
}

func (s *Service) ListIncomes(ctx context.Context, r DateRange, limit, offset int) ([]*Income, int64, error) {
	return s.incomes.Search(ctx, r, limit, offset)
}

func (s *Service) incomePatch(in *IncomeInput) (*IncomePatch, error) {
	p := &IncomePatch{
		Description:   trimmed(in.Description),
		Amount:        in.Amount,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Patient:       in.Patient,
		AppointmentID: in.AppointmentID,
		UpdatedAt:     s.now(),
	}
	if p.Description != nil && *p.Description == "" {
		return nil, apierr.Invalid("Descrição é obrigatória")
	}
	if p.Amount != nil && *p.Amount < 0 {
		return nil, apierr.Invalid("Valor inválido")
	}
	if in.Date != nil {
		d, err := timeparam.Parse(*in.Date)
		if err != nil {
			return nil, apierr.Invalid("Data inválida")
		}
		p.Date = &d
	}
	return p, nil
}

// -- Bill --

// CreateBill stores a new bill, Pending unless the body says otherwise. A
// bill created as Paid is stamped paid now.
func (s *Service) CreateBill(ctx context.Context, in *BillInput) (*Bill, error) {
	if missing := missingFields(
		field{"description", in.Description},
		field{"dueDate", in.DueDate},
	); in.Amount == nil || len(missing) > 0 {
		if in.Amount == nil {
			missing = append(missing, "amount")
		}
		return nil, apierr.Invalid("Campos obrigatórios ausentes: %s", strings.Join(missing, ", "))
	}
	if in.Status == nil {
		pending := BillPending
		in.Status = &pending
	}
	p, err := s.billPatch(in)
	if err != nil {
		return nil, err
	}
	b := &Bill{ID: uuid.NewString(), CreatedAt: p.UpdatedAt}
	p.Apply(b)
	if err := s.bills.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetBill(ctx context.Context, id string) (*Bill, error) {
	return s.bills.GetByID(ctx, id)
}

func (s *Service) UpdateBill(ctx context.Context, id string, in *BillInput) (*Bill, error) {
	p, err := s.billPatch(in)
	if err != nil {
		return nil, err
	}
	return s.bills.Update(ctx, id, p)
}

// PayBill marks the bill Paid. Paying an already paid bill keeps its
// original paidAt.
func (s *Service) PayBill(ctx context.Context, id string) (*Bill, error) {
	paid := BillPaid
	return s.bills.Update(ctx, id, &BillPatch{Status: &paid, UpdatedAt: s.now()})
}

func (s *Service) DeleteBill(ctx context.Context, id string) error {
	return s.bills.Delete(ctx, id)
}

func (s *Service) ListBills(ctx context.Context, f BillFilter, limit, offset int) ([]*Bill, int64, error) {
	if f.Status != "" && !validBillStatuses[f.Status] {
		return nil, 0, apierr.Invalid("Status inválido: %s", f.Status)
	}
	return s.bills.Search(ctx, f, limit, offset)
}

func (s *Service) billPatch(in *BillInput) (*BillPatch, error) {
	p := &BillPatch{
		Description: trimmed(in.Description),
		Amount:      in.Amount,
		Status:      in.Status,
		Category:    in.Category,
		Supplier:    in.Supplier,
		UpdatedAt:   s.now(),
	}
	if p.Description != nil && *p.Description == "" {
		return nil, apierr.Invalid("Descrição é obrigatória")
	}
	if p.Amount != nil && *p.Amount < 0 {
		return nil, apierr.Invalid("Valor inválido")
	}
	if p.Status != nil && !validBillStatuses[*p.Status] {
		return nil, apierr.Invalid("Status inválido: %s", *p.Status)
	}
	if in.DueDate != nil {
		d, err := timeparam.Parse(*in.DueDate)
		if err != nil {
			return nil, apierr.Invalid("Data de vencimento inválida")
		}
		p.DueDate = &d
	}
	return p, nil
}

// -- Summary --

// Summary totals income dated and bills due within r. Balance is income
// minus paid expenses; pending bills do not affect it.
func (s *Service) Summary(ctx context.Context, r DateRange) (*Summary, error) {
	income, err := s.incomes.Total(ctx, r)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.bills.TotalsByStatus(ctx, r)
	if err != nil {
		return nil, err
	}
	return &Summary{
		From:         r.From,
		To:           r.To,
		Income:       income,
		ExpensesPaid: byStatus[BillPaid],
		Pending:      byStatus[BillPending],
		Balance:      income - byStatus[BillPaid],
	}, nil
}

type field struct {
	name string
	v    *string
}

func missingFields(fields ...field) []string {
	var missing []string
	for _, f := range fields {
		if f.v == nil || strings.TrimSpace(*f.v) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
