package store

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/uptrace/bun"
)

// Schema describes the table backing a Store.
type Schema struct {
	// Name is the table name, it must match the bun model.
	Name string
	// SoftDelete marks tables with a deletion timestamp column. Removing
	// a record sets the timestamp instead of deleting the row.
	SoftDelete bool
	// ServerComputed columns are filled by the database and ignored on create.
	ServerComputed []string
}

type column struct {
	name       string
	index      []int
	primary    bool
	softDelete bool
}

type relation struct {
	name  string
	index []int
}

type layout struct {
	table      string
	columns    map[string]column
	relations  map[string]relation
	softDelete *column
}

var baseModelType = reflect.TypeOf(bun.BaseModel{})

func inspect(t reflect.Type) layout {
	l := layout{
		columns:   map[string]column{},
		relations: map[string]relation{},
	}
	walkFields(t, nil, &l)
	for _, c := range l.columns {
		if c.softDelete {
			c := c
			l.softDelete = &c
		}
	}
	return l
}

func walkFields(t reflect.Type, parent []int, l *layout) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int{}, parent...), i)
		tag, hasTag := f.Tag.Lookup("bun")

		if f.Type == baseModelType {
			l.table = tableFromTag(tag)
			continue
		}

		if tag == "-" {
			continue
		}

		if f.Anonymous && !hasTag {
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				walkFields(ft, index, l)
			}
			continue
		}

		if !f.IsExported() {
			continue
		}

		name, opts := splitTag(tag)
		if opts["rel"] || opts["m2m"] {
			l.relations[f.Name] = relation{name: f.Name, index: index}
			continue
		}

		if name == "" {
			name = underscore(f.Name)
		}

		l.columns[name] = column{
			name:       name,
			index:      index,
			primary:    opts["pk"],
			softDelete: opts["soft_delete"],
		}
	}
}

func splitTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	opts := map[string]bool{}
	for _, p := range parts[1:] {
		key, _, _ := strings.Cut(strings.TrimSpace(p), ":")
		opts[key] = true
	}
	name := strings.TrimSpace(parts[0])
	if strings.Contains(name, ":") {
		key, _, _ := strings.Cut(name, ":")
		opts[key] = true
		name = ""
	}
	return name, opts
}

func tableFromTag(tag string) string {
	for _, p := range strings.Split(tag, ",") {
		if key, val, ok := strings.Cut(strings.TrimSpace(p), ":"); ok && key == "table" {
			return val
		}
	}
	return ""
}

func underscore(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Schema) check(l layout) error {
	meta := map[string]any{"schema": s.Name}

	if s.Name == "" {
		return ErrInvalidSchema.Clone().WithMetadata(map[string]any{
			"reason": "schema name is required",
		})
	}

	if l.table != "" && l.table != s.Name {
		meta["reason"] = "schema name does not match model table"
		meta["table"] = l.table
		return ErrInvalidSchema.Clone().WithMetadata(meta)
	}

	id, ok := l.columns["id"]
	if !ok || !id.primary {
		meta["reason"] = "model must embed store.Entity"
		return ErrInvalidSchema.Clone().WithMetadata(meta)
	}

	if s.SoftDelete != (l.softDelete != nil) {
		meta["reason"] = "soft delete flag does not match model soft_delete column"
		return ErrInvalidSchema.Clone().WithMetadata(meta)
	}

	for _, name := range s.ServerComputed {
		if name == "id" {
			meta["reason"] = "id is generated by the store"
			return ErrInvalidSchema.Clone().WithMetadata(meta)
		}
		if _, ok := l.columns[name]; !ok {
			meta["reason"] = "unknown server computed column"
			meta["column"] = name
			return ErrInvalidSchema.Clone().WithMetadata(meta)
		}
	}

	return nil
}
