package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clinic/clinic/internal/platform/retry"
)

// mainKey is the singleflight key of the main connection. It cannot collide
// with a tenant because tenant identifiers never contain ':'.
const mainKey = ":main"

// Dialer opens a connection to one database. tenant is "" for the main
// connection.
type Dialer interface {
	Dial(ctx context.Context, tenant, database string) (*Conn, error)
}

// Options tune a Manager.
type Options struct {
	// MainDatabase names the administrative database. Tenants may not use it.
	MainDatabase string
	Retry        retry.Config
	// EnsureIndexes creates the default models' indexes on every new tenant
	// connection. Failures are logged, not returned.
	EnsureIndexes bool
	Logger        zerolog.Logger
}

// Stats is a point-in-time view of the connection cache.
type Stats struct {
	Tenants      int    `json:"tenants"`
	MainOpen     bool   `json:"main_open"`
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	DialFailures uint64 `json:"dial_failures"`
}

// Manager keeps exactly one Conn per tenant for the life of the process.
// Concurrent first requests for a tenant share a single dial.
type Manager struct {
	dialer Dialer
	opts   Options

	mu     sync.RWMutex
	conns  map[string]*Conn
	main   *Conn
	closed bool

	group singleflight.Group

	hits     atomic.Uint64
	misses   atomic.Uint64
	failures atomic.Uint64
}

// NewManager creates a manager that opens connections through dialer.
func NewManager(dialer Dialer, opts Options) *Manager {
	if opts.MainDatabase == "" {
		opts.MainDatabase = "main"
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry = retry.DefaultConfig()
	}
	return &Manager{
		dialer: dialer,
		opts:   opts,
		conns:  make(map[string]*Conn),
	}
}

// Connect returns the cached connection for tenant, opening it on first use.
// An empty tenant selects the shared main connection.
func (m *Manager) Connect(ctx context.Context, tenant string) (*Conn, error) {
	if tenant == "" {
		return m.Main(ctx)
	}
	if err := ValidateTenantID(tenant); err != nil {
		return nil, err
	}
	if tenant == m.opts.MainDatabase {
		return nil, fmt.Errorf("%w: %q is the administrative database", ErrInvalidTenant, tenant)
	}

	if conn, ok, err := m.lookup(tenant); err != nil {
		return nil, err
	} else if ok {
		m.hits.Add(1)
		cacheHits.Inc()
		return conn, nil
	}

	// The dial outlives the request that triggered it: other waiters share
	// the result and the connection is cached for everyone.
	dialCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(tenant, func() (any, error) {
		if conn, ok, err := m.lookup(tenant); err != nil || ok {
			return conn, err
		}
		m.misses.Add(1)
		cacheMisses.Inc()
		conn, err := m.open(dialCtx, tenant, tenant)
		if err != nil {
			return nil, err
		}
		if err := conn.RegisterModels(DefaultModels...); err != nil {
			_ = conn.Close(dialCtx)
			return nil, err
		}
		if m.opts.EnsureIndexes {
			if err := conn.EnsureIndexes(dialCtx); err != nil {
				m.opts.Logger.Warn().Err(err).Str("tenant", tenant).Msg("ensure indexes failed")
			}
		}
		return m.store(dialCtx, tenant, conn)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Conn), nil
	}
}

// Main returns the shared administrative connection.
func (m *Manager) Main(ctx context.Context) (*Conn, error) {
	m.mu.RLock()
	main, closed := m.main, m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}
	if main != nil {
		return main, nil
	}

	dialCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(mainKey, func() (any, error) {
		m.mu.RLock()
		existing := m.main
		m.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		conn, err := m.open(dialCtx, "", m.opts.MainDatabase)
		if err != nil {
			return nil, err
		}
		if err := conn.RegisterModels(ModelTenant); err != nil {
			_ = conn.Close(dialCtx)
			return nil, err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			_ = conn.Close(dialCtx)
			return nil, ErrManagerClosed
		}
		m.main = conn
		return conn, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Conn), nil
	}
}

// Tenants lists the identifiers with an open connection, sorted.
func (m *Manager) Tenants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats reports cache counters.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	n, mainOpen := len(m.conns), m.main != nil
	m.mu.RUnlock()
	return Stats{
		Tenants:      n,
		MainOpen:     mainOpen,
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		DialFailures: m.failures.Load(),
	}
}

// Close disconnects every cached connection. Connect fails afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	conns := make([]*Conn, 0, len(m.conns)+1)
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	if m.main != nil {
		conns = append(conns, m.main)
	}
	m.conns = map[string]*Conn{}
	m.main = nil
	m.mu.Unlock()

	openConnections.Set(0)

	var firstErr error
	for _, c := range conns {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection %q: %w", c.Tenant(), err)
		}
	}
	return firstErr
}

func (m *Manager) lookup(tenant string) (*Conn, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrManagerClosed
	}
	conn, ok := m.conns[tenant]
	return conn, ok, nil
}

func (m *Manager) store(ctx context.Context, tenant string, conn *Conn) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		_ = conn.Close(ctx)
		return nil, ErrManagerClosed
	}
	m.conns[tenant] = conn
	openConnections.Set(float64(len(m.conns)))
	return conn, nil
}

func (m *Manager) open(ctx context.Context, tenant, database string) (*Conn, error) {
	start := time.Now()
	conn, err := retry.Do(ctx, m.opts.Retry, m.opts.Logger, "connect "+database, func(ctx context.Context) (*Conn, error) {
		return m.dialer.Dial(ctx, tenant, database)
	})
	observeDial(tenant, time.Since(start), err)
	if err != nil {
		m.failures.Add(1)
		return nil, fmt.Errorf("connect database %q: %w", database, err)
	}
	m.opts.Logger.Info().
		Str("tenant", tenant).
		Str("database", database).
		Dur("elapsed", time.Since(start)).
		Msg("database connection opened")
	return conn, nil
}
