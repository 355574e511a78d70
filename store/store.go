package store

import (
	"context"
	"reflect"
	"time"

	"github.com/uptrace/bun"
)

// Store persists one entity type in one table.
type Store[T any, PT Model[T]] struct {
	db     *bun.DB
	schema *Schema
	layout layout
	config
}

// New creates a store for T, validating schema against the model tags.
func New[T any, PT Model[T]](db *bun.DB, schema Schema, opts ...Option) (*Store[T, PT], error) {
	cfg := config{
		ids:    UUIDGenerator,
		sink:   noopAuditSink{},
		logger: nopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	l := inspect(reflect.TypeOf((*T)(nil)).Elem())
	s := schema
	s.ServerComputed = append([]string(nil), schema.ServerComputed...)
	if err := s.check(l); err != nil {
		return nil, err
	}

	for name := range cfg.relations {
		if _, ok := l.relations[name]; !ok {
			return nil, ErrInvalidSchema.Clone().WithMetadata(map[string]any{
				"schema":   s.Name,
				"reason":   "unknown relation",
				"relation": name,
			})
		}
	}

	return &Store[T, PT]{
		db:     db,
		schema: &s,
		layout: l,
		config: cfg,
	}, nil
}

// Must is like New but panics on error.
func Must[T any, PT Model[T]](db *bun.DB, schema Schema, opts ...Option) *Store[T, PT] {
	s, err := New[T, PT](db, schema, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema returns the schema records of this store are stamped with.
func (s *Store[T, PT]) Schema() *Schema {
	return s.schema
}

// Owns reports whether rec was materialized by this store.
func (s *Store[T, PT]) Owns(rec PT) bool {
	return rec != nil && originOf(rec) == s.schema
}

func (s *Store[T, PT]) FindOne(ctx context.Context, pred Predicate, opts ...FindOption) (PT, bool, error) {
	return s.FindOneTx(ctx, s.db, pred, opts...)
}

// FindOneTx returns the first matching record; found is false when none match.
func (s *Store[T, PT]) FindOneTx(ctx context.Context, tx bun.IDB, pred Predicate, opts ...FindOption) (PT, bool, error) {
	record := PT(new(T))
	q, o, err := s.selectQuery(tx, record, pred, opts)
	if err != nil {
		return nil, false, err
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, translate(err, s.schema, "find")
	}

	s.materialize(record, o)
	return record, true, nil
}

func (s *Store[T, PT]) Find(ctx context.Context, pred Predicate, page Page, opts ...FindOption) (*Result[PT], error) {
	return s.FindTx(ctx, s.db, pred, page, opts...)
}

// FindTx returns a page of matching records and the total match count.
func (s *Store[T, PT]) FindTx(ctx context.Context, tx bun.IDB, pred Predicate, page Page, opts ...FindOption) (*Result[PT], error) {
	page = page.normalize()

	var rows []T
	q, o, err := s.selectQuery(tx, &rows, pred, opts)
	if err != nil {
		return nil, err
	}

	total, err := q.Offset(page.Offset).Limit(page.Limit).ScanAndCount(ctx)
	if err != nil && !isNotFound(err) {
		return nil, translate(err, s.schema, "find")
	}

	result := &Result[PT]{
		Limit: page.Limit,
		Total: total,
		Rows:  make([]PT, 0, len(rows)),
	}
	for i := range rows {
		record := PT(&rows[i])
		s.materialize(record, o)
		result.Rows = append(result.Rows, record)
	}
	return result, nil
}

func (s *Store[T, PT]) Create(ctx context.Context, payload PT, audit Audit) (PT, error) {
	return s.CreateTx(ctx, s.db, payload, audit)
}

// CreateTx inserts a copy of payload under a freshly generated identifier.
// Server computed columns in payload are ignored and the returned record
// carries the values assigned by the database.
func (s *Store[T, PT]) CreateTx(ctx context.Context, tx bun.IDB, payload PT, audit Audit) (PT, error) {
	record := PT(new(T))
	if payload != nil {
		*record = *payload
	}

	rv := reflect.ValueOf(record).Elem()
	for _, name := range s.schema.ServerComputed {
		f := rv.FieldByIndex(s.layout.columns[name].index)
		f.Set(reflect.Zero(f.Type()))
	}

	e := record.entity()
	e.ID = s.ids.NewID()
	e.origin = nil
	e.partial = false

	_, err := tx.NewInsert().
		Model(record).
		ExcludeColumn(s.schema.ServerComputed...).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, translate(err, s.schema, "create")
	}

	stamp(record, s.schema)
	s.record(ctx, audit.event(AuditCreated, s.schema, e.ID, s.now()))
	return record, nil
}

func (s *Store[T, PT]) Save(ctx context.Context, record PT, audit Audit) error {
	return s.SaveTx(ctx, s.db, record, audit)
}

// SaveTx upserts every column of record by identifier. Records loaded
// with Columns are rejected.
func (s *Store[T, PT]) SaveTx(ctx context.Context, tx bun.IDB, record PT, audit Audit) error {
	if err := s.owned(record, "save"); err != nil {
		return err
	}

	if record.entity().partial {
		return ErrPartialEntity.Clone().WithMetadata(map[string]any{
			"schema":    s.schema.Name,
			"operation": "save",
			"id":        record.GetID(),
		})
	}

	if col, ok := s.layout.columns["updated_at"]; ok {
		setTime(reflect.ValueOf(record).Elem().FieldByIndex(col.index), s.now().UTC())
	}

	_, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Exec(ctx)
	if err != nil {
		return translate(err, s.schema, "save")
	}

	s.record(ctx, audit.event(AuditSaved, s.schema, record.GetID(), s.now()))
	return nil
}

func (s *Store[T, PT]) Remove(ctx context.Context, record PT, audit Audit) error {
	return s.RemoveTx(ctx, s.db, record, audit)
}

// RemoveTx soft deletes record when the schema allows it, otherwise the
// row is deleted.
func (s *Store[T, PT]) RemoveTx(ctx context.Context, tx bun.IDB, record PT, audit Audit) error {
	if err := s.owned(record, "remove"); err != nil {
		return err
	}

	q := tx.NewDelete().Model(record).WherePK()
	if !s.schema.SoftDelete {
		q = q.ForceDelete()
	}

	if _, err := q.Exec(ctx); err != nil {
		return translate(err, s.schema, "remove")
	}

	s.record(ctx, audit.event(AuditRemoved, s.schema, record.GetID(), s.now()))
	return nil
}

func (s *Store[T, PT]) owned(record PT, op string) error {
	if s.Owns(record) {
		return nil
	}

	meta := map[string]any{
		"schema":    s.schema.Name,
		"operation": op,
	}
	if record != nil {
		meta["id"] = record.GetID()
		if origin := originOf(record); origin != nil {
			meta["origin"] = origin.Name
		}
	}
	return ErrForeignEntity.Clone().WithMetadata(meta)
}

func (s *Store[T, PT]) selectQuery(tx bun.IDB, model any, pred Predicate, opts []FindOption) (*bun.SelectQuery, *findOptions, error) {
	o := &findOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	conds, err := s.layout.compile(pred)
	if err != nil {
		return nil, nil, err
	}

	q := tx.NewSelect().Model(model)

	if o.withDeleted && s.schema.SoftDelete {
		q = q.WhereAllWithDeleted()
	}

	if len(o.columns) > 0 {
		cols := []string{"id"}
		for _, c := range o.columns {
			if _, ok := s.layout.columns[c]; !ok {
				return nil, nil, unknownColumn(c)
			}
			if c != "id" {
				cols = append(cols, c)
			}
		}
		q = q.Column(cols...)
	}

	for _, name := range o.relations {
		if _, ok := s.layout.relations[name]; !ok {
			return nil, nil, unknownColumn(name)
		}
		q = q.Relation(name)
	}

	q = applyConditions(q, conds)

	for _, ord := range o.orders {
		if _, ok := s.layout.columns[ord.column]; !ok {
			return nil, nil, unknownColumn(ord.column)
		}
		q = q.OrderExpr("?TableAlias.? "+ord.dir, bun.Ident(ord.column))
	}

	for _, c := range o.criteria {
		q = q.Apply(c)
	}

	return q, o, nil
}

// materialize stamps record and any loaded relation with their schema.
func (s *Store[T, PT]) materialize(record PT, o *findOptions) {
	stamp(record, s.schema)
	record.entity().partial = len(o.columns) > 0

	rv := reflect.ValueOf(record).Elem()
	for _, name := range o.relations {
		schema, ok := s.relations[name]
		if !ok {
			continue
		}
		stampValue(rv.FieldByIndex(s.layout.relations[name].index), schema)
	}
}

func stampValue(v reflect.Value, schema *Schema) {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return
		}
		if r, ok := v.Interface().(Record); ok {
			stamp(r, schema)
		}
	case reflect.Struct:
		if v.CanAddr() {
			stampValue(v.Addr(), schema)
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			stampValue(v.Index(i), schema)
		}
	}
}

func (s *Store[T, PT]) record(ctx context.Context, event AuditEvent) {
	if err := s.sink.Record(ctx, event); err != nil {
		s.logger.Error("audit sink failed for %s %s: %v", event.Action, event.EntityID, err)
	}
}

func unknownColumn(name string) error {
	return ErrUnknownColumn.Clone().WithMetadata(map[string]any{
		"column": name,
	})
}

func setTime(f reflect.Value, t time.Time) {
	switch f.Interface().(type) {
	case time.Time:
		f.Set(reflect.ValueOf(t))
	case *time.Time:
		f.Set(reflect.ValueOf(&t))
	case bun.NullTime:
		f.Set(reflect.ValueOf(bun.NullTime{Time: t}))
	}
}
