package query

import (
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
)

// Apply counts the rows matching params' search and filters, then fetches
// one sorted page of them.
func Apply[T any](db *gorm.DB, params Params, config Config) (*Result[T], error) {
	q := db.Session(&gorm.Session{}).Model(new(T))
	q = search(q, params.Search, config.SearchFields)
	for _, c := range params.Conditions {
		if slices.Contains(config.AllowedFilters, c.Field) {
			q = where(q, config.ResolveField(c.Field), c)
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	q = order(q, params, config)
	if params.Limit > 0 {
		q = q.Limit(params.Limit)
	}
	data := make([]T, 0)
	if err := q.Offset(params.Offset).Find(&data).Error; err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return &Result[T]{Data: data, Offset: params.Offset, Total: total}, nil
}

// search matches term case-insensitively against any of fields.
func search(db *gorm.DB, term string, fields []string) *gorm.DB {
	if term == "" || len(fields) == 0 {
		return db
	}
	pattern := "%" + strings.ToLower(term) + "%"
	clauses := make([]string, len(fields))
	args := make([]interface{}, len(fields))
	for i, f := range fields {
		clauses[i] = "LOWER(" + f + ") LIKE ?"
		args[i] = pattern
	}
	return db.Where(strings.Join(clauses, " OR "), args...)
}

// comparisons maps the single-value operators to their SQL.
var comparisons = map[Operator]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

func where(db *gorm.DB, column string, c Condition) *gorm.DB {
	switch c.Operator {
	case OpEq, OpIn:
		values := c.Values
		if len(values) == 0 && c.Operator == OpIn && c.Value != "" {
			values = strings.Split(c.Value, ",")
		}
		if len(values) > 0 {
			return db.Where(column+" IN ?", values)
		}
		if c.Operator == OpIn {
			return db
		}
	case OpLike:
		return db.Where(column+" LIKE ?", "%"+c.Value+"%")
	case OpIlike:
		return db.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(c.Value)+"%")
	case OpNull:
		return db.Where(column + " IS NULL")
	case OpNotNull:
		return db.Where(column + " IS NOT NULL")
	}
	sqlOp, ok := comparisons[c.Operator]
	if !ok {
		return db
	}
	return db.Where(column+" "+sqlOp+" ?", literal(c.Value))
}

// order sorts by params.SortBy when it is allowed, else by the default.
func order(db *gorm.DB, params Params, config Config) *gorm.DB {
	if params.SortBy != "" && slices.Contains(config.AllowedSortFields, params.SortBy) {
		col := config.ResolveField(params.SortBy)
		if params.SortOrder == "desc" {
			col += " DESC"
		}
		return db.Order(col)
	}
	if config.DefaultSort != "" {
		return db.Order(config.DefaultSort)
	}
	return db
}

// literal binds "true" and "false" as booleans so they compare against
// boolean columns on every engine.
func literal(v string) interface{} {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
