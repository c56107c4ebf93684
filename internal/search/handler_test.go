package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/health"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	got  Query
	page Page
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, q Query) (Page, error) {
	f.got = q
	return f.page, f.err
}

func newSearchRouter(s Searcher, now time.Time) *gin.Engine {
	h := NewSearchHandler(s, zap.NewNop())
	h.Now = func() time.Time { return now }
	return NewRouter(h, nil, zap.NewNop())
}

func TestSearchItems_BindsQuery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &fakeSearcher{page: Page{
		Results:    []Projection{{ID: "a-1", Make: "Ford"}},
		PageCount:  1,
		TotalCount: 1,
	}}
	router := newSearchRouter(s, now)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet,
		"/search?searchTerm=ford&seller=bob&orderBy=new&filterBy=finished&pageNumber=2&pageSize=10", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	want := Query{SearchTerm: "ford", Seller: "bob", OrderBy: OrderNew, FilterBy: FilterFinished, PageNumber: 2, PageSize: 10, Now: now}
	if s.got != want {
		t.Errorf("expected %+v, got %+v", want, s.got)
	}

	var page Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if page.TotalCount != 1 || len(page.Results) != 1 || page.Results[0].ID != "a-1" {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestSearchItems_InvalidPage(t *testing.T) {
	router := newSearchRouter(&fakeSearcher{}, time.Now())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/search?pageNumber=-1", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestSearchItems_StoreFailure(t *testing.T) {
	router := newSearchRouter(&fakeSearcher{err: errors.New("db down")}, time.Now())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/search", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
}

func TestSearchHealthCheck(t *testing.T) {
	router := newSearchRouter(&fakeSearcher{}, time.Now())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

type subscription bool

func (s subscription) Connected() bool { return bool(s) }

func TestSearchHealthReportsLostSubscription(t *testing.T) {
	router := NewRouter(NewSearchHandler(&fakeSearcher{}, zap.NewNop()), NewHealth(subscription(false)), zap.NewNop())

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp health.Report
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != health.StatusDegraded || resp.Checks["consumer"] != "down" {
		t.Errorf("expected degraded with consumer down, got %+v", resp)
	}
}
