package admin

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Service struct {
	users UserRepository
	now   func() time.Time
}

func NewService(users UserRepository) *Service {
	return &Service{users: users, now: func() time.Time { return time.Now().UTC() }}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser adds a staff member. Role defaults to user; only owners may
// create other owners.
func (s *Service) CreateUser(ctx context.Context, in *UserInput) (*User, error) {
	var missing []string
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.Email == nil || strings.TrimSpace(*in.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, apierr.Invalid("Campos obrigatórios ausentes: %s", strings.Join(missing, ", "))
	}
	if in.Role == nil {
		role := auth.RoleUser
		in.Role = &role
	}
	p, err := s.userPatch(ctx, in)
	if err != nil {
		return nil, err
	}
	u := &User{ID: uuid.NewString(), Active: true, CreatedAt: p.UpdatedAt}
	p.Apply(u)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// FindByEmail returns the tenant user with email, or db.ErrNotFound.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.GetByEmail(ctx, NormalizeEmail(email))
}

// UpdateUser applies a partial update. Changing an owner account, or
// granting the owner role, is reserved to owners.
func (s *Service) UpdateUser(ctx context.Context, id string, in *UserInput) (*User, error) {
	p, err := s.userPatch(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.guardOwner(ctx, id); err != nil {
		return nil, err
	}
	return s.users.Update(ctx, id, p)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.guardOwner(ctx, id); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, f UserFilter, limit, offset int) ([]*User, int64, error) {
	if f.Role != "" && !auth.ValidRole(f.Role) {
		return nil, 0, apierr.Invalid("Papel inválido: %s", f.Role)
	}
	return s.users.Search(ctx, f, limit, offset)
}

func (s *Service) userPatch(ctx context.Context, in *UserInput) (*UserPatch, error) {
	p := &UserPatch{Active: in.Active, UpdatedAt: s.now()}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apierr.Invalid("Nome é obrigatório")
		}
		p.Name = &name
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if !strings.Contains(email, "@") {
			return nil, apierr.Invalid("E-mail inválido")
		}
		p.Email = &email
	}
	if in.Role != nil {
		if !auth.ValidRole(*in.Role) {
			return nil, apierr.Invalid("Papel inválido: %s", *in.Role)
		}
		if *in.Role == auth.RoleOwner && auth.RoleFromContext(ctx) != auth.RoleOwner {
			return nil, apierr.Forbidden("Apenas o proprietário pode atribuir o papel owner")
		}
		p.Role = in.Role
	}
	return p, nil
}

func (s *Service) guardOwner(ctx context.Context, id string) error {
	if auth.RoleFromContext(ctx) == auth.RoleOwner {
		return nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == auth.RoleOwner {
		return apierr.Forbidden("Apenas o proprietário pode alterar esta conta")
	}
	return nil
}
