package procedure

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apierr"
)

type Service struct {
	procedures ProcedureRepository
	now        func() time.Time
}

func NewService(repo ProcedureRepository) *Service {
	return &Service{procedures: repo, now: func() time.Time { return time.Now().UTC() }}
}

// CreateProcedure requires a name and a non-negative price; new procedures
// are active unless the body says otherwise.
func (s *Service) CreateProcedure(ctx context.Context, in *ProcedureInput) (*Procedure, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, apierr.Invalid("Nome do procedimento é obrigatório")
	}
	if in.Price == nil {
		return nil, apierr.Invalid("Preço do procedimento é obrigatório")
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	now := s.now()
	p := &Procedure{ID: uuid.NewString(), Active: true, CreatedAt: now}
	in.Apply(p, now)
	if err := s.procedures.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProcedure(ctx context.Context, id string) (*Procedure, error) {
	return s.procedures.GetByID(ctx, id)
}

func (s *Service) UpdateProcedure(ctx context.Context, id string, in *ProcedureInput) (*Procedure, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apierr.Invalid("Nome do procedimento é obrigatório")
	}
	if err := validate(in); err != nil {
		return nil, err
	}
	return s.procedures.Update(ctx, id, in, s.now())
}

func (s *Service) DeleteProcedure(ctx context.Context, id string) error {
	return s.procedures.Delete(ctx, id)
}

func (s *Service) ListProcedures(ctx context.Context, f ProcedureFilter, limit, offset int) ([]*Procedure, int64, error) {
	return s.procedures.Search(ctx, f, limit, offset)
}

func validate(in *ProcedureInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Price != nil && *in.Price < 0 {
		return apierr.Invalid("Preço inválido")
	}
	if in.DurationMinutes != nil && *in.DurationMinutes < 0 {
		return apierr.Invalid("Duração inválida")
	}
	return nil
}
