// internal/handler/history_handler_test.go
package handler

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
)

func filterContext(t *testing.T, query url.Values) *gin.Context {
	t.Helper()

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/v1/history?"+query.Encode(), nil)
	return c
}

func TestParseCommandFilter_SortWhitelist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		query   url.Values
		wantErr bool
		sortBy  string
	}{
		{
			name:   "defaults",
			query:  url.Values{},
			sortBy: "created_at",
		},
		{
			name:   "duration ascending",
			query:  url.Values{"sort_by": {"duration_ms"}, "sort_order": {"asc"}},
			sortBy: "duration_ms",
		},
		{
			name:   "kind",
			query:  url.Values{"sort_by": {"kind"}},
			sortBy: "kind",
		},
		{
			name:   "status",
			query:  url.Values{"sort_by": {"status"}},
			sortBy: "status",
		},
		{
			name:    "subquery rejected",
			query:   url.Values{"sort_by": {"(SELECT pg_sleep(10))"}},
			wantErr: true,
		},
		{
			name:    "statement injection rejected",
			query:   url.Values{"sort_by": {"created_at; DROP TABLE command_history"}},
			wantErr: true,
		},
		{
			name:    "real but unsortable column rejected",
			query:   url.Values{"sort_by": {"payload"}},
			wantErr: true,
		},
		{
			name:    "bad sort order rejected",
			query:   url.Values{"sort_order": {"sideways"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := parseCommandFilter(filterContext(t, tt.query))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseCommandFilter(%v) accepted, want error", tt.query)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCommandFilter(%v) error: %v", tt.query, err)
			}
			if filter.SortBy != tt.sortBy {
				t.Errorf("SortBy = %q, want %q", filter.SortBy, tt.sortBy)
			}
		})
	}
}

func TestParseCommandFilter_Pagination(t *testing.T) {
	t.Parallel()

	if _, err := parseCommandFilter(filterContext(t, url.Values{"page": {"0"}})); err == nil {
		t.Error("page=0 accepted, want error")
	}
	if _, err := parseCommandFilter(filterContext(t, url.Values{"per_page": {"1000"}})); err == nil {
		t.Error("per_page=1000 accepted, want error")
	}

	filter, err := parseCommandFilter(filterContext(t, url.Values{"page": {"3"}, "per_page": {"25"}}))
	if err != nil {
		t.Fatalf("parseCommandFilter error: %v", err)
	}
	if filter.Page != 3 || filter.PerPage != 25 {
		t.Errorf("pagination = (%d, %d), want (3, 25)", filter.Page, filter.PerPage)
	}
}
