package store

import (
	"reflect"
	"sort"

	"github.com/uptrace/bun"
)

// Predicate filters the rows a query returns.
type Predicate interface {
	groups() []Where
}

// Where maps columns to values or operators. All fields must match.
// A nil value matches NULL, a Record value matches its ID.
type Where map[string]any

func (w Where) groups() []Where { return []Where{w} }

type anyOf []Where

func (a anyOf) groups() []Where { return a }

// AnyOf matches rows satisfying at least one of the given filters.
func AnyOf(where ...Where) Predicate {
	return anyOf(where)
}

// Op is a comparison applied to a single column.
type Op struct {
	op    string
	value any
}

func Eq(v any) Op  { return Op{op: "=", value: v} }
func Ne(v any) Op  { return Op{op: "<>", value: v} }
func Gt(v any) Op  { return Op{op: ">", value: v} }
func Gte(v any) Op { return Op{op: ">=", value: v} }
func Lt(v any) Op  { return Op{op: "<", value: v} }
func Lte(v any) Op { return Op{op: "<=", value: v} }

// Like matches a SQL LIKE pattern.
func Like(pattern string) Op { return Op{op: "LIKE", value: pattern} }

// In matches any of the given values.
func In(values ...any) Op { return Op{op: "IN", value: values} }

func IsNull() Op  { return Op{op: "IS NULL"} }
func NotNull() Op { return Op{op: "IS NOT NULL"} }

type condition struct {
	query string
	args  []any
}

func (l layout) compile(pred Predicate) ([][]condition, error) {
	if pred == nil {
		return nil, nil
	}

	groups := pred.groups()
	if len(groups) == 0 {
		return [][]condition{{{query: "1 = 0"}}}, nil
	}

	out := make([][]condition, 0, len(groups))
	for _, g := range groups {
		if len(g) == 0 {
			// an empty filter matches every row, so the whole OR does
			return nil, nil
		}

		keys := make([]string, 0, len(g))
		for k := range g {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		conds := make([]condition, 0, len(keys))
		for _, key := range keys {
			if _, ok := l.columns[key]; !ok {
				return nil, ErrUnknownColumn.Clone().WithMetadata(map[string]any{
					"column": key,
				})
			}
			conds = append(conds, toCondition(key, g[key]))
		}
		out = append(out, conds)
	}
	return out, nil
}

func toCondition(col string, v any) condition {
	op, ok := v.(Op)
	if !ok {
		op = Eq(v)
	}

	ident := bun.Ident(col)
	switch op.op {
	case "IS NULL", "IS NOT NULL":
		return condition{query: "?TableAlias.? " + op.op, args: []any{ident}}
	case "IN":
		values, _ := op.value.([]any)
		if len(values) == 0 {
			return condition{query: "1 = 0"}
		}
		resolved := make([]any, len(values))
		for i, val := range values {
			resolved[i] = resolve(val)
		}
		return condition{query: "?TableAlias.? IN (?)", args: []any{ident, bun.In(resolved)}}
	}

	val := resolve(op.value)
	if val == nil {
		if op.op == "<>" {
			return condition{query: "?TableAlias.? IS NOT NULL", args: []any{ident}}
		}
		return condition{query: "?TableAlias.? IS NULL", args: []any{ident}}
	}
	return condition{query: "?TableAlias.? " + op.op + " ?", args: []any{ident, val}}
}

// resolve turns records into their identifiers.
func resolve(v any) any {
	if v == nil {
		return nil
	}
	if r, ok := v.(Record); ok {
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Ptr && rv.IsNil() {
			return nil
		}
		return r.GetID()
	}
	return v
}

func applyConditions(q *bun.SelectQuery, groups [][]condition) *bun.SelectQuery {
	if len(groups) == 0 {
		return q
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for i, conds := range groups {
			sep := " OR "
			if i == 0 {
				sep = " AND "
			}
			conds := conds
			q = q.WhereGroup(sep, func(q *bun.SelectQuery) *bun.SelectQuery {
				for _, c := range conds {
					q = q.Where(c.query, c.args...)
				}
				return q
			})
		}
		return q
	})
}
