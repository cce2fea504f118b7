package query

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Parse extracts list parameters from URL query values:
// skip, limit, sortBy, order, search and one PostgREST condition per allowed
// filter field ("is_active=eq.true").
func Parse(q url.Values, config Config) Params {
	defLimit, maxLimit := config.DefaultLimit, config.MaxLimit
	if defLimit <= 0 {
		defLimit = DefaultLimit
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	params := Params{
		Offset:    nonNegative(q.Get("skip"), 0),
		Limit:     clamp(nonNegative(q.Get("limit"), defLimit), 1, maxLimit),
		SortBy:    q.Get("sortBy"),
		SortOrder: normalizeSortOrder(q.Get("order")),
		Search:    strings.TrimSpace(q.Get("search")),
	}

	for _, field := range config.AllowedFilters {
		if v := q.Get(field); v != "" {
			params.Conditions = append(params.Conditions, parseCondition(field, v))
		}
	}
	return params
}

// parseCondition parses a single PostgREST-style condition (op.value).
func parseCondition(field, value string) Condition {
	switch value {
	case "is.null":
		return Condition{Field: field, Operator: OpNull}
	case "not.is.null":
		return Condition{Field: field, Operator: OpNotNull}
	}

	dotIdx := strings.Index(value, ".")
	if dotIdx == -1 {
		return Condition{Field: field, Operator: OpEq, Value: value}
	}

	op := Operator(value[:dotIdx])
	rawValue := value[dotIdx+1:]
	if !op.IsValid() {
		return Condition{Field: field, Operator: OpEq, Value: value}
	}

	if strings.HasPrefix(rawValue, "(") && strings.HasSuffix(rawValue, ")") {
		var values []string
		for _, v := range strings.Split(rawValue[1:len(rawValue)-1], ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		return Condition{Field: field, Operator: op, Values: values}
	}
	return Condition{Field: field, Operator: op, Value: rawValue}
}

func nonNegative(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

func clamp(v, lower, upper int) int {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

func normalizeSortOrder(s string) string {
	if strings.EqualFold(s, "desc") {
		return "desc"
	}
	return "asc"
}
