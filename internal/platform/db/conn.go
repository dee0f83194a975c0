package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultOpTimeout = 10 * time.Second

// Conn is a live handle on one tenant's database together with the models
// registered on it. Conns are owned by the Manager; request handlers borrow
// them and never close them.
type Conn struct {
	tenant    string
	client    *mongo.Client
	database  *mongo.Database
	opTimeout time.Duration

	mu     sync.Mutex
	models map[string]*Model
}

// NewConn wraps an established client. client and database may be nil in
// tests that only exercise model registration.
func NewConn(tenant string, client *mongo.Client, database *mongo.Database, opTimeout time.Duration) *Conn {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &Conn{
		tenant:    tenant,
		client:    client,
		database:  database,
		opTimeout: opTimeout,
		models:    make(map[string]*Model),
	}
}

// Tenant returns the tenant identifier, or "" for the main connection.
func (c *Conn) Tenant() string { return c.tenant }

// Database returns the underlying database handle.
func (c *Conn) Database() *mongo.Database { return c.database }

// Model returns the model registered under name on this connection,
// registering it first if needed. Repeated calls return the same *Model.
func (c *Conn) Model(name string) (*Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[name]; ok {
		return m, nil
	}
	schema, ok := LookupSchema(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	m := &Model{schema: schema, conn: c}
	c.models[name] = m
	return m, nil
}

// RegisterModels binds each named schema to the connection.
func (c *Conn) RegisterModels(names ...string) error {
	for _, name := range names {
		if _, err := c.Model(name); err != nil {
			return err
		}
	}
	return nil
}

// Models lists the registered model names in sorted order.
func (c *Conn) Models() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.models))
	for name := range c.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnsureIndexes creates the indexes of every registered model.
func (c *Conn) EnsureIndexes(ctx context.Context) error {
	c.mu.Lock()
	models := make([]*Model, 0, len(c.models))
	for _, m := range c.models {
		models = append(models, m)
	}
	c.mu.Unlock()

	for _, m := range models {
		if err := m.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the server behind the connection is reachable.
func (c *Conn) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("connection for %q has no client", c.tenant)
	}
	ctx, cancel := c.WithTimeout(ctx)
	defer cancel()
	return c.client.Ping(ctx, readpref.Primary())
}

// WithTimeout bounds a single database operation.
func (c *Conn) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opTimeout)
}

// Close disconnects the client. Only the Manager calls it.
func (c *Conn) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}

// Model is a schema bound to one connection.
type Model struct {
	schema Schema
	conn   *Conn

	indexMu   sync.Mutex
	indexDone bool
}

// Name returns the schema name.
func (m *Model) Name() string { return m.schema.Name }

// Collection returns the collection handle for this model on its connection.
func (m *Model) Collection() *mongo.Collection {
	return m.conn.database.Collection(m.schema.Collection)
}

// EnsureIndexes creates the schema's indexes once per connection.
func (m *Model) EnsureIndexes(ctx context.Context) error {
	m.indexMu.Lock()
	defer m.indexMu.Unlock()

	if m.indexDone || len(m.schema.Indexes) == 0 {
		return nil
	}
	ctx, cancel := m.conn.WithTimeout(ctx)
	defer cancel()
	if _, err := m.Collection().Indexes().CreateMany(ctx, m.schema.Indexes); err != nil {
		return fmt.Errorf("create indexes for %s on %q: %w", m.schema.Name, m.conn.tenant, err)
	}
	m.indexDone = true
	return nil
}
