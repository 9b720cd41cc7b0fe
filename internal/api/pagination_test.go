package api

import (
	"net/http/httptest"
	"testing"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
		check   func(t *testing.T, page, size int, search, sortBy string, desc bool)
	}{
		{
			name:  "defaults",
			query: "",
			check: func(t *testing.T, page, size int, _, _ string, desc bool) {
				if page != 1 || size != defaultPageSize || desc {
					t.Errorf("defaults = page %d size %d desc %v", page, size, desc)
				}
			},
		},
		{
			name:  "all parameters",
			query: "?page=3&size=10&search=general&sort_by=name&order=desc",
			check: func(t *testing.T, page, size int, search, sortBy string, desc bool) {
				if page != 3 || size != 10 || search != "general" || sortBy != "name" || !desc {
					t.Errorf("parsed = %d/%d/%q/%q/%v", page, size, search, sortBy, desc)
				}
			},
		},
		{
			name:  "size zero is unbounded",
			query: "?size=0",
			check: func(t *testing.T, _, size int, _, _ string, _ bool) {
				if size != 0 {
					t.Errorf("size = %d, want 0", size)
				}
			},
		},
		{name: "bad page", query: "?page=x", wantErr: true},
		{name: "negative size", query: "?size=-1", wantErr: true},
		{name: "bad order", query: "?order=SIDEWAYS", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/sessions"+tt.query, nil)
			params, err := parseListParams(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseListParams() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseListParams() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, params.Page, params.Size, params.Search, params.SortBy, params.Descending)
			}
		})
	}
}
