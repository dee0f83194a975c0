package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinic/clinic/internal/domain/admin"
	"github.com/clinic/clinic/internal/platform/db"
)

const (
	lookupTTL         = time.Minute
	lookupConcurrency = 8
)

// TenantLister lists the clinics the lookup probes.
type TenantLister interface {
	ActiveIDs(ctx context.Context) ([]string, error)
}

// UserFinder loads a user of the tenant carried by ctx.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*admin.User, error)
}

// Locator finds the clinics in which an email belongs to an active user.
// Results are cached in process for a minute.
type Locator struct {
	tenants TenantLister
	conns   db.Connector
	users   UserFinder
	cache   *ristretto.Cache[string, []string]
	logger  zerolog.Logger
}

func NewLocator(tenants TenantLister, conns db.Connector, users UserFinder, logger zerolog.Logger) (*Locator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []string]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Locator{tenants: tenants, conns: conns, users: users, cache: cache, logger: logger}, nil
}

// Lookup returns the sorted identifiers of every tenant with an active user
// for email. A tenant that cannot be reached is skipped and logged.
func (l *Locator) Lookup(ctx context.Context, email string) ([]string, error) {
	email = admin.NormalizeEmail(email)
	if ids, ok := l.cache.Get(email); ok {
		return ids, nil
	}

	candidates, err := l.tenants.ActiveIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	found := make([]string, 0, 1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for _, tenant := range candidates {
		tenant := tenant
		g.Go(func() error {
			u, err := l.find(gctx, tenant, email)
			if err != nil {
				if !errors.Is(err, db.ErrNotFound) {
					l.logger.Warn().Err(err).Str("tenant", tenant).Msg("tenant lookup failed")
				}
				return nil
			}
			if u.Active {
				mu.Lock()
				found = append(found, tenant)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(found)
	l.cache.SetWithTTL(email, found, int64(len(found)+1), lookupTTL)
	return found, nil
}

// Active reports whether tenant is an active clinic of the directory.
func (l *Locator) Active(ctx context.Context, tenant string) (bool, error) {
	ids, err := l.tenants.ActiveIDs(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == tenant {
			return true, nil
		}
	}
	return false, nil
}

// FindUser loads the user with email from one tenant.
func (l *Locator) FindUser(ctx context.Context, tenant, email string) (*admin.User, error) {
	return l.find(ctx, tenant, admin.NormalizeEmail(email))
}

func (l *Locator) find(ctx context.Context, tenant, email string) (*admin.User, error) {
	conn, err := l.conns.Connect(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return l.users.FindByEmail(db.WithConn(ctx, conn), email)
}

// Close releases the cache.
func (l *Locator) Close() {
	l.cache.Close()
}
