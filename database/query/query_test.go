package query

import (
	"net/url"
	"path/filepath"
	"reflect"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type account struct {
	ID     uint
	Email  string
	Active bool
}

var accountQuery = Config{
	SearchFields:      []string{"email"},
	AllowedSortFields: []string{"id", "email"},
	AllowedFilters:    []string{"active", "email"},
	DefaultSort:       "id",
}

func TestParse(t *testing.T) {
	q := url.Values{
		"skip":   {"10"},
		"limit":  {"5000"},
		"sortBy": {"email"},
		"order":  {"DESC"},
		"search": {"  fake "},
		"active": {"eq.true"},
		"role":   {"eq.admin"},
	}
	p := Parse(q, accountQuery)

	if p.Offset != 10 || p.Limit != MaxLimit {
		t.Errorf("offset/limit = %d/%d", p.Offset, p.Limit)
	}
	if p.SortBy != "email" || p.SortOrder != "desc" || p.Search != "fake" {
		t.Errorf("sort/search = %q %q %q", p.SortBy, p.SortOrder, p.Search)
	}
	want := []Condition{{Field: "active", Operator: OpEq, Value: "true"}}
	if !reflect.DeepEqual(p.Conditions, want) {
		t.Errorf("conditions = %+v", p.Conditions)
	}
}

func TestParse_Defaults(t *testing.T) {
	p := Parse(url.Values{"skip": {"-3"}, "limit": {"abc"}}, Config{DefaultLimit: 20})
	if p.Offset != 0 || p.Limit != 20 || p.SortOrder != "asc" {
		t.Errorf("Parse() defaults = %+v", p)
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		value string
		want  Condition
	}{
		{"plain", Condition{Field: "f", Operator: OpEq, Value: "plain"}},
		{"ilike.Fake", Condition{Field: "f", Operator: OpIlike, Value: "Fake"}},
		{"bogus.x", Condition{Field: "f", Operator: OpEq, Value: "bogus.x"}},
		{"is.null", Condition{Field: "f", Operator: OpNull}},
		{"not.is.null", Condition{Field: "f", Operator: OpNotNull}},
	}
	for _, tc := range tests {
		got := parseCondition("f", tc.value)
		if got.Field != tc.want.Field || got.Operator != tc.want.Operator || got.Value != tc.want.Value {
			t.Errorf("parseCondition(%q) = %+v, want %+v", tc.value, got, tc.want)
		}
	}

	in := parseCondition("f", "in.(a, b,,c)")
	if in.Operator != OpIn || len(in.Values) != 3 {
		t.Errorf("parseCondition(in) = %+v", in)
	}
}

func seed(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "q.db")), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.AutoMigrate(&account{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	rows := []account{
		{Email: "fake@email.com", Active: true},
		{Email: "fakeadmin@email.com", Active: true},
		{Email: "other@email.com", Active: false},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func TestApply(t *testing.T) {
	db := seed(t)

	res, err := Apply[account](db, Params{Offset: 1, Limit: 1}, accountQuery)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if res.Total != 3 || len(res.Data) != 1 || res.Data[0].Email != "fakeadmin@email.com" {
		t.Errorf("Apply() = %+v", res)
	}
	if got := res.ContentRange("accounts"); got != "accounts 1-1/3" {
		t.Errorf("ContentRange() = %q", got)
	}

	res, err = Apply[account](db, Params{
		Limit:      10,
		Search:     "FAKE",
		Conditions: []Condition{{Field: "active", Operator: OpEq, Value: "true"}},
		SortBy:     "email",
		SortOrder:  "desc",
	}, accountQuery)
	if err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}
	if res.Total != 2 || res.Data[0].Email != "fakeadmin@email.com" {
		t.Errorf("filtered Apply() = %+v", res)
	}
}

func TestContentRange_Empty(t *testing.T) {
	res := &Result[account]{}
	if got := res.ContentRange("users"); got != "users 0-0/0" {
		t.Errorf("ContentRange() = %q", got)
	}
}
