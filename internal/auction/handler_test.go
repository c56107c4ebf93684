package auction

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/middleware"
	"github.com/sabuhakaya/Carties/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var auctionRowColumns = []string{
	"id", "reserve_price", "seller", "winner", "sold_amount", "current_high_bid",
	"created_at", "updated_at", "auction_end", "status", "version",
	"make", "model", "year", "color", "mileage", "image_url",
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func auctionRows() *sqlmock.Rows {
	return sqlmock.NewRows(auctionRowColumns)
}

func addAuction(rows *sqlmock.Rows, id, mk string, version int64) *sqlmock.Rows {
	created := fixedNow.Add(-48 * time.Hour)
	return rows.AddRow(id, int64(20000), "bob", nil, nil, nil,
		created, created, fixedNow.Add(72*time.Hour), "Live", version,
		mk, "GT", int64(2020), "White", int64(50000), "https://cdn.example.com/a.jpg")
}

func newTestRouter(t *testing.T, pub *mockPublisher) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewAuctionHandler(db, pub, zap.NewNop())
	h.Now = func() time.Time { return fixedNow }
	return NewRouter(h, nil, zap.NewNop()), mock
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, body []byte) models.Envelope {
	t.Helper()
	env, err := models.ParseEnvelope(body)
	if err != nil {
		t.Fatalf("published body is not an envelope: %v", err)
	}
	return env
}

const createBody = `{"make":"Ford","model":"GT","year":2020,"color":"White","mileage":50000,
	"imageUrl":"https://cdn.example.com/ford-gt.jpg","reservePrice":20000,"auctionEnd":"2026-12-31T00:00:00Z"}`

func TestCreateAuction_Success(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO auctions").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPost, "/auctions", createBody, map[string]string{
		SellerHeader:                   "alice",
		middleware.CorrelationIDHeader: "corr-create",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var got models.Auction
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if got.ID == "" || got.Seller != "alice" || got.Status != models.StatusLive || got.Version != 1 {
		t.Errorf("unexpected auction: %+v", got)
	}
	if loc := w.Header().Get("Location"); loc != "/auctions/"+got.ID {
		t.Errorf("expected Location /auctions/%s, got %q", got.ID, loc)
	}

	if len(pub.published) != 1 {
		t.Fatalf("expected 1 published message, got %d", len(pub.published))
	}
	msg := pub.published[0]
	if msg.RoutingKey != "auction.created" || msg.CorrelationID != "corr-create" {
		t.Errorf("unexpected publish: key=%s corr=%s", msg.RoutingKey, msg.CorrelationID)
	}
	env := decodeEnvelope(t, msg.Body)
	created, err := env.DecodeCreated()
	if err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if env.Version != 1 || created.ID != got.ID || created.Make != "Ford" || created.Seller != "alice" {
		t.Errorf("unexpected created event: version=%d %+v", env.Version, created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestCreateAuction_DefaultSeller(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO auctions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPost, "/auctions", createBody, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var got models.Auction
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Seller != defaultSeller {
		t.Errorf("expected seller %s, got %s", defaultSeller, got.Seller)
	}
}

func TestCreateAuction_PublishFailureStillCommits(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO auctions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPost, "/auctions", createBody, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestCreateAuction_CommitFailure(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO auctions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	w := doRequest(router, http.MethodPost, "/auctions", createBody, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d: %s", w.Code, w.Body.String())
	}

	// The event left before the commit failed.
	if len(pub.published) != 1 {
		t.Errorf("expected event handed to the broker before commit, got %d", len(pub.published))
	}
}

func TestCreateAuction_BadRequest(t *testing.T) {
	pub := &mockPublisher{}
	router, _ := newTestRouter(t, pub)

	w := doRequest(router, http.MethodPost, "/auctions", `{"make":"Ford","year":1800}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
	if len(pub.published) != 0 {
		t.Errorf("expected no events, got %d", len(pub.published))
	}
}

func TestGetAuction_Success(t *testing.T) {
	router, mock := newTestRouter(t, &mockPublisher{})

	mock.ExpectQuery("SELECT .* FROM auctions WHERE id = \\$1").
		WithArgs("a-1").
		WillReturnRows(addAuction(auctionRows(), "a-1", "Ford", 2))

	w := doRequest(router, http.MethodGet, "/auctions/a-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var got models.Auction
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if got.ID != "a-1" || got.Make != "Ford" || got.Version != 2 || got.Winner != nil {
		t.Errorf("unexpected auction: %+v", got)
	}
}

func TestGetAuction_NotFound(t *testing.T) {
	router, mock := newTestRouter(t, &mockPublisher{})

	mock.ExpectQuery("SELECT .* FROM auctions WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(auctionRows())

	w := doRequest(router, http.MethodGet, "/auctions/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListAuctions_All(t *testing.T) {
	router, mock := newTestRouter(t, &mockPublisher{})

	rows := addAuction(auctionRows(), "a-1", "Audi", 1)
	addAuction(rows, "a-2", "Ford", 1)
	mock.ExpectQuery("SELECT .* FROM auctions ORDER BY make").WillReturnRows(rows)

	w := doRequest(router, http.MethodGet, "/auctions", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var got []models.Auction
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(got) != 2 || got[0].Make != "Audi" {
		t.Errorf("unexpected list: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestListAuctions_Empty(t *testing.T) {
	router, mock := newTestRouter(t, &mockPublisher{})
	mock.ExpectQuery("SELECT .* FROM auctions ORDER BY make").WillReturnRows(auctionRows())

	w := doRequest(router, http.MethodGet, "/auctions", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "[]" {
		t.Errorf("expected empty JSON array, got %s", w.Body.String())
	}
}

func TestListAuctions_DateFilter(t *testing.T) {
	router, mock := newTestRouter(t, &mockPublisher{})

	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .* FROM auctions WHERE updated_at > \\$1 ORDER BY make").
		WithArgs(since).
		WillReturnRows(addAuction(auctionRows(), "a-1", "Ford", 3))

	w := doRequest(router, http.MethodGet, "/auctions?date=2026-02-01", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestListAuctions_InvalidDate(t *testing.T) {
	router, _ := newTestRouter(t, &mockPublisher{})

	w := doRequest(router, http.MethodGet, "/auctions?date=yesterday", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}

func TestUpdateAuction_Success(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM auctions WHERE id = \\$1 FOR UPDATE").
		WithArgs("a-1").
		WillReturnRows(addAuction(auctionRows(), "a-1", "Ford", 3))
	mock.ExpectExec("UPDATE auctions SET make = \\$1, model = \\$2, year = \\$3, color = \\$4, mileage = \\$5, updated_at = \\$6, version = \\$7 WHERE id = \\$8").
		WithArgs("Ford", "Mustang", 2020, "Red", 50000, fixedNow, int64(4), "a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodPut, "/auctions/a-1", `{"model":"Mustang","color":"Red"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if len(pub.published) != 1 || pub.published[0].RoutingKey != "auction.updated" {
		t.Fatalf("expected one auction.updated event, got %+v", pub.published)
	}
	env := decodeEnvelope(t, pub.published[0].Body)
	updated, err := env.DecodeUpdated()
	if err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if env.Version != 4 {
		t.Errorf("expected version 4, got %d", env.Version)
	}
	if updated.Model == nil || *updated.Model != "Mustang" || updated.Make == nil || *updated.Make != "Ford" {
		t.Errorf("expected full post-update item, got %+v", updated)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestUpdateAuction_NotFound(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM auctions WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(auctionRows())
	mock.ExpectRollback()

	w := doRequest(router, http.MethodPut, "/auctions/missing", `{"color":"Red"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
	if len(pub.published) != 0 {
		t.Errorf("expected no events, got %d", len(pub.published))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestDeleteAuction_Success(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM auctions WHERE id = \\$1 FOR UPDATE").
		WithArgs("a-1").
		WillReturnRows(addAuction(auctionRows(), "a-1", "Ford", 2))
	mock.ExpectExec("DELETE FROM auctions WHERE id = \\$1").
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := doRequest(router, http.MethodDelete, "/auctions/a-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	if len(pub.published) != 1 || pub.published[0].RoutingKey != "auction.deleted" {
		t.Fatalf("expected one auction.deleted event, got %+v", pub.published)
	}
	env := decodeEnvelope(t, pub.published[0].Body)
	deleted, err := env.DecodeDeleted()
	if err != nil {
		t.Fatalf("decode deleted: %v", err)
	}
	if deleted.ID != "a-1" || env.Version != 3 {
		t.Errorf("unexpected deleted event: version=%d %+v", env.Version, deleted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sqlmock expectations: %v", err)
	}
}

func TestDeleteAuction_NotFound(t *testing.T) {
	pub := &mockPublisher{}
	router, mock := newTestRouter(t, pub)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM auctions WHERE id = \\$1 FOR UPDATE").
		WithArgs("missing").
		WillReturnRows(auctionRows())
	mock.ExpectRollback()

	w := doRequest(router, http.MethodDelete, "/auctions/missing", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
	if len(pub.published) != 0 {
		t.Errorf("expected no events, got %d", len(pub.published))
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2026-02-01", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), false},
		{"2026-02-01T10:30:00", time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC), false},
		{"2026-02-01T10:30:00+02:00", time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC), false},
		{"not-a-date", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDate(%q) error = %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
