package store

import (
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// MaxPageSize caps the number of rows returned by Find.
const MaxPageSize = 50

// IDGenerator produces identifiers for new records.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to the IDGenerator interface.
type IDGeneratorFunc func() string

// NewID implements IDGenerator.
func (f IDGeneratorFunc) NewID() string { return f() }

// UUIDGenerator generates random (v4) UUID strings.
var UUIDGenerator IDGenerator = IDGeneratorFunc(uuid.NewString)

// Logger is the logging surface used by a Store.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

type config struct {
	ids       IDGenerator
	sink      AuditSink
	logger    Logger
	now       func() time.Time
	relations map[string]*Schema
}

// Option configures a Store.
type Option func(*config)

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithAuditSink sets the sink receiving audit events.
func WithAuditSink(s AuditSink) Option {
	return func(c *config) {
		c.sink = normalizeAuditSink(s)
	}
}

func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now, used for updated_at and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRelation registers the schema of the store owning a related model.
// Records loaded through the relation are stamped with that schema so the
// owning store accepts them in Save and Remove.
func WithRelation(name string, schema *Schema) Option {
	return func(c *config) {
		if c.relations == nil {
			c.relations = map[string]*Schema{}
		}
		c.relations[name] = schema
	}
}

// Page selects a window of rows.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Result is a page of rows plus the number of rows matching the predicate.
type Result[PT any] struct {
	Limit int  `json:"limit"`
	Total int  `json:"total"`
	Rows  []PT `json:"rows"`
}

type order struct {
	column string
	dir    string
}

type findOptions struct {
	withDeleted bool
	orders      []order
	columns     []string
	relations   []string
	criteria    []repository.SelectCriteria
}

// FindOption tunes FindOne and Find.
type FindOption func(*findOptions)

// IncludeDeleted returns soft deleted rows as well.
func IncludeDeleted() FindOption {
	return func(o *findOptions) {
		o.withDeleted = true
	}
}

// OrderBy sorts by column, dir is ASC or DESC.
func OrderBy(column, dir string) FindOption {
	return func(o *findOptions) {
		dir = strings.ToUpper(strings.TrimSpace(dir))
		if dir != "DESC" {
			dir = "ASC"
		}
		o.orders = append(o.orders, order{column: column, dir: dir})
	}
}

// Columns restricts the selected columns, id is always selected.
func Columns(cols ...string) FindOption {
	return func(o *findOptions) {
		o.columns = append(o.columns, cols...)
	}
}

// Relations joins the named model relations.
func Relations(names ...string) FindOption {
	return func(o *findOptions) {
		o.relations = append(o.relations, names...)
	}
}

// Criteria applies raw bun query modifiers.
func Criteria(criteria ...repository.SelectCriteria) FindOption {
	return func(o *findOptions) {
		o.criteria = append(o.criteria, criteria...)
	}
}
