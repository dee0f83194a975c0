// Package dbtest provides an in-memory, tenant-partitioned document store for
// repository mocks. Every operation sees only the records of the tenant on
// the context, as db.Scoped does.
package dbtest

import (
	"context"
	"sort"
	"sync"

	"github.com/clinic/clinic/internal/platform/db"
)

// TenantContext returns a context carrying a connection-less tenant.
func TenantContext(tenant string) context.Context {
	return db.WithConn(context.Background(), db.NewConn(tenant, nil, nil, 0))
}

type Store[T any] struct {
	mu   sync.Mutex
	id   func(*T) string
	data map[string]map[string]T
}

// NewStore returns a store keyed by id.
func NewStore[T any](id func(*T) string) *Store[T] {
	return &Store[T]{id: id, data: make(map[string]map[string]T)}
}

func (s *Store[T]) bucket(ctx context.Context) (map[string]T, error) {
	tenant := db.TenantFromContext(ctx)
	if tenant == "" {
		return nil, db.ErrNoTenant
	}
	b, ok := s.data[tenant]
	if !ok {
		b = make(map[string]T)
		s.data[tenant] = b
	}
	return b, nil
}

// Insert stamps v with the context tenant and stores a copy.
func (s *Store[T]) Insert(ctx context.Context, v *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if st, ok := any(v).(db.TenantStamped); ok {
		st.SetTenantPath(db.TenantFromContext(ctx))
	}
	b[s.id(v)] = *v
	return nil
}

func (s *Store[T]) Get(ctx context.Context, id string) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := b[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &v, nil
}

// Update runs fn on a copy of the record and stores the result unless fn
// fails. The whole operation is atomic.
func (s *Store[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := b[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if err := fn(&v); err != nil {
		return nil, err
	}
	b[id] = v
	out := v
	return &out, nil
}

func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(ctx)
	if err != nil {
		return err
	}
	if _, ok := b[id]; !ok {
		return db.ErrNotFound
	}
	delete(b, id)
	return nil
}

// List returns the page of records accepted by keep (nil keeps all), ordered
// by less (nil leaves map order), and the total number of matches.
func (s *Store[T]) List(ctx context.Context, keep func(*T) bool, less func(a, b *T) bool, limit, offset int) ([]*T, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bucket(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*T, 0, len(b))
	for _, v := range b {
		v := v
		if keep == nil || keep(&v) {
			out = append(out, &v)
		}
	}
	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	total := int64(len(out))
	if offset >= len(out) {
		return []*T{}, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

// All returns every record of every tenant, for assertions.
func (s *Store[T]) All() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, b := range s.data {
		for _, v := range b {
			out = append(out, v)
		}
	}
	return out
}
