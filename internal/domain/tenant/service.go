package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apierr"
	"github.com/clinic/clinic/internal/platform/db"
)

// Provisioner prepares a tenant database. *db.Manager satisfies it through
// Connect; the returned connection is then given every schema.
type Provisioner interface {
	Connect(ctx context.Context, tenant string) (*db.Conn, error)
}

type Service struct {
	dir    Directory
	conns  Provisioner
	mainDB string
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(dir Directory, conns Provisioner, mainDB string, logger zerolog.Logger) *Service {
	return &Service{dir: dir, conns: conns, mainDB: mainDB, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create lists a new clinic in the directory and prepares its database:
// every schema is registered and its indexes are built.
func (s *Service) Create(ctx context.Context, id, name string) (*Tenant, error) {
	id = strings.TrimSpace(id)
	if err := db.ValidateTenantID(id); err != nil {
		return nil, apierr.Invalid("%v", err)
	}
	if id == s.mainDB {
		return nil, apierr.Invalid("%q is the administrative database", id)
	}
	if strings.TrimSpace(name) == "" {
		name = id
	}

	t := &Tenant{ID: id, Name: strings.TrimSpace(name), Active: true, CreatedAt: s.now()}
	if err := s.dir.Create(ctx, t); err != nil {
		return nil, err
	}

	conn, err := s.conns.Connect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("connect tenant %q: %w", id, err)
	}
	if err := conn.RegisterModels(db.TenantSchemaNames()...); err != nil {
		return nil, err
	}
	if conn.Database() != nil {
		if err := conn.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes for %q: %w", id, err)
		}
	}
	s.logger.Info().Str("tenant", id).Strs("models", conn.Models()).Msg("tenant provisioned")
	return t, nil
}

func (s *Service) List(ctx context.Context) ([]Tenant, error) {
	return s.dir.List(ctx)
}

func (s *Service) ActiveIDs(ctx context.Context) ([]string, error) {
	return s.dir.ActiveIDs(ctx)
}
