// Package query parses list-endpoint parameters (offset pagination, sorting,
// PostgREST-style filters) and applies them to GORM queries.
package query

import (
	"fmt"
	"slices"
)

// Operator is the prefix of a PostgREST filter value ("eq.true").
type Operator string

const (
	OpEq      Operator = "eq"
	OpNeq     Operator = "neq"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpIn      Operator = "in"
	OpLike    Operator = "like"
	OpIlike   Operator = "ilike"
	OpNull    Operator = "null"
	OpNotNull Operator = "notNull"
)

var operators = []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpLike, OpIlike, OpNull, OpNotNull}

func (o Operator) IsValid() bool { return slices.Contains(operators, o) }

// Condition filters one field. Values is set for parenthesised lists
// ("in.(a,b)"), Value otherwise.
type Condition struct {
	Field    string
	Operator Operator
	Value    string
	Values   []string
}

// Params is a parsed list request.
type Params struct {
	Offset     int
	Limit      int
	SortBy     string
	SortOrder  string
	Search     string
	Conditions []Condition
}

// Result is one page of rows plus the unpaginated total.
type Result[T any] struct {
	Data   []T
	Offset int
	Total  int64
}

// ContentRange formats the header react-admin style clients read, e.g.
// "users 0-9/42". An empty page is reported as "users 0-0/0".
func (r *Result[T]) ContentRange(resource string) string {
	end := r.Offset + len(r.Data) - 1
	if end < r.Offset {
		end = r.Offset
	}
	return fmt.Sprintf("%s %d-%d/%d", resource, r.Offset, end, r.Total)
}

// Config whitelists what a list endpoint may search, sort and filter on.
// FieldAliases maps a public field name to its column.
type Config struct {
	SearchFields      []string
	AllowedSortFields []string
	AllowedFilters    []string
	FieldAliases      map[string]string
	DefaultSort       string
	DefaultLimit      int
	MaxLimit          int
}

func (c Config) ResolveField(field string) string {
	if col, ok := c.FieldAliases[field]; ok {
		return col
	}
	return field
}
