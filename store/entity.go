package store

// Entity is the base shape embedded by every record managed by a Store.
// The identifier is generated client side before the first write.
type Entity struct {
	ID string `bun:"id,pk" json:"id"`

	origin  *Schema `bun:"-"`
	partial bool    `bun:"-"`
}

// GetID returns the entity identifier
func (e *Entity) GetID() string {
	if e == nil {
		return ""
	}
	return e.ID
}

// Persisted reports whether the entity was materialized by a store.
func (e *Entity) Persisted() bool {
	return e != nil && e.origin != nil
}

// Partial reports whether the entity was loaded with a column projection.
// Partial entities can be removed but not saved.
func (e *Entity) Partial() bool {
	return e != nil && e.partial
}

func (e *Entity) entity() *Entity { return e }

// Record is implemented by any type embedding Entity.
type Record interface {
	GetID() string
	entity() *Entity
}

// Model constrains the pointer type of a stored struct.
type Model[T any] interface {
	*T
	Record
}

func stamp(r Record, s *Schema) {
	if e := r.entity(); e != nil {
		e.origin = s
	}
}

func originOf(r Record) *Schema {
	if e := r.entity(); e != nil {
		return e.origin
	}
	return nil
}
