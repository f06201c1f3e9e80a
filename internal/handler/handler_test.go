package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/gigboard/internal/client"
	"github.com/noah-isme/gigboard/internal/codec"
	"github.com/noah-isme/gigboard/internal/models"
	"github.com/noah-isme/gigboard/internal/service"
	"github.com/noah-isme/gigboard/internal/tokenstore"
	"github.com/noah-isme/gigboard/internal/validation"
	"github.com/noah-isme/gigboard/pkg/clock"
	"github.com/noah-isme/gigboard/pkg/config"
)

const (
	testSID   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	testToken = "admin-token"
)

var testNow = time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)

// fakeBackend plays the events and auth API.
type fakeBackend struct {
	mu       sync.Mutex
	events   map[string]models.Event
	order    []string
	requests []string
	bodies   []string
	reject   bool
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{events: map[string]models.Event{}}
	b.add(models.Event{ID: "1", Title: "Yesterday Jam", Date: "2025-06-19T00:00:00.000Z"})
	venue := "Club"
	b.add(models.Event{ID: "2", Title: "Weekend Fest", Date: "2025-06-21T00:00:00.000Z", EndDate: strPtr("2025-06-22T00:00:00.000Z"), Venue: &venue})
	return b
}

func strPtr(s string) *string { return &s }

func (b *fakeBackend) add(e models.Event) {
	b.events[e.ID.String()] = e
	b.order = append(b.order, e.ID.String())
}

func (b *fakeBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

func (b *fakeBackend) body(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[i]
}

func (b *fakeBackend) rejectAll() {
	b.mu.Lock()
	b.reject = true
	b.mu.Unlock()
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	b.bodies = append(b.bodies, string(body))

	if r.URL.Path == "/auth/login" {
		var creds models.LoginCredentials
		_ = json.Unmarshal(body, &creds)
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"` + testToken + `"}`))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/events" {
		list := make([]models.Event, 0, len(b.order))
		for _, id := range b.order {
			list = append(list, b.events[id])
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(list)
		return
	}

	if b.reject || r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/events/")
	switch r.Method {
	case http.MethodPost:
		var in models.EventInput
		_ = json.Unmarshal(body, &in)
		e := models.Event{ID: "3", Title: in.Title, Date: in.Date, Venue: in.Venue, Location: in.Location}
		b.add(e)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(e)
	case http.MethodGet, http.MethodPut:
		e, ok := b.events[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodPut {
			var in models.EventInput
			_ = json.Unmarshal(body, &in)
			e.Title = in.Title
		}
		_ = json.NewEncoder(w).Encode(e)
	case http.MethodDelete:
		delete(b.events, id)
		w.WriteHeader(http.StatusNoContent)
	}
}

type auditSink struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditSink) Create(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type testEnv struct {
	router  *gin.Engine
	backend *fakeBackend
	store   *tokenstore.MemoryStore
	audit   *auditSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend := newFakeBackend()
	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	c, err := codec.NewForZone("Europe/Berlin")
	require.NoError(t, err)

	metrics := service.NewMetricsService()
	opts := client.Options{BaseURL: upstream.URL, HTTPClient: upstream.Client(), Logger: zap.NewNop(), Observer: metrics}
	events := client.NewEventClient(opts)
	clk := clock.NewFixed(testNow)

	sink := &auditSink{}
	audit := service.NewAuditService(sink, metrics, zap.NewNop())
	authSvc := service.NewAuthService(client.NewAuthClient(opts), audit, zap.NewNop())
	lists := service.NewEventListService(c, clk, zap.NewNop())
	forms := service.NewEventFormService(c, validation.NewEventValidator(validator.New(), c), metrics, zap.NewNop())
	exports := service.NewExportService(c, zap.NewNop())

	store := tokenstore.NewMemoryStore()
	router := gin.New()
	RegisterRoutes(router, Routes{
		APIPrefix:   "/api/v1",
		Sessions:    store,
		Session:     config.SessionConfig{CookieName: "gigboard_session", TTL: time.Hour},
		AuthService: authSvc,
		Audit:       audit,
		Health:      NewHealthHandler(metrics, map[string]ReadinessCheck{"sessions": func(context.Context) error { return nil }}),
		Events:      NewEventHandler(lists, events, c),
		Admin:       NewAdminEventHandler(lists, forms, exports, events, c, clk),
		Auth:        NewAuthHandler(authSvc),
	})

	return &testEnv{router: router, backend: backend, store: store, audit: sink}
}

func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, e.store.Set(context.Background(), tokenstore.Key(testSID), testToken, 0))
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return e.doAs(testSID, method, path, body)
}

func (e *testEnv) doAs(sid, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: "gigboard_session", Value: sid})
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestPublicListFiltersAndRendersCards(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/events?filter=upcoming", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Filter string `json:"filter"`
		Events []struct {
			ID    string  `json:"id"`
			Date  string  `json:"date"`
			Venue *string `json:"venue"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Equal(t, "upcoming", list.Filter)
	require.Len(t, list.Events, 1)
	assert.Equal(t, "2", list.Events[0].ID)
	assert.Equal(t, "21.06.2025 – 22.06.2025", list.Events[0].Date)

	rec = env.do(http.MethodGet, "/api/v1/events?filter=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/admin/events", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)
	assert.Equal(t, "/admin/login", body.Meta["redirect"])
	assert.Empty(t, env.backend.calls())
}

func TestLoginStoresTokenAndOpensAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decode(t, rec).Error.Message)

	rec = env.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, client.MsgCredentialsRequired, decode(t, rec).Error.Message)

	rec = env.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	sid := sessionCookie(t, rec)

	token, err := env.store.Get(context.Background(), tokenstore.Key(sid))
	require.NoError(t, err)
	assert.Equal(t, testToken, token)

	rec = env.doAs(sid, http.MethodGet, "/api/v1/auth/session", nil)
	assert.JSONEq(t, `{"authenticated":true}`, string(decode(t, rec).Data))

	rec = env.doAs(sid, http.MethodGet, "/api/v1/admin/events", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.doAs(sid, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err = env.store.Get(context.Background(), tokenstore.Key(sid))
	assert.ErrorIs(t, err, tokenstore.ErrMissing)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "gigboard_session" {
			return cookie.Value
		}
	}
	t.Fatalf("no session cookie in response")
	return ""
}

func TestLoginIssuesFreshSessionID(t *testing.T) {
	env := newTestEnv(t)
	planted := "11111111-2222-4333-8444-555555555555"

	rec := env.doAs(planted, http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	sid := sessionCookie(t, rec)
	assert.NotEqual(t, planted, sid)

	_, err := env.store.Get(context.Background(), tokenstore.Key(planted))
	assert.ErrorIs(t, err, tokenstore.ErrMissing)

	rec = env.doAs(planted, http.MethodGet, "/api/v1/admin/events", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doAs(sid, http.MethodGet, "/api/v1/admin/events", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFailedLoginKeepsSessionID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "admin", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestCreateWithViolationsReturnsFieldMap(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	rec := env.do(http.MethodPost, "/api/v1/admin/events", map[string]string{
		"date":     "20.06.2025",
		"endDate":  "19.06.2025",
		"venue":    "Club",
		"location": "Main St",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	fields, ok := body.Meta["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, validation.MsgTitleRequired, fields["title"])
	assert.Equal(t, validation.MsgEndDateInvalid, fields["endDate"])
	assert.Len(t, fields, 2)
	assert.Empty(t, env.backend.calls())
}

func TestCreateSendsWireDatesAndAudits(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	rec := env.do(http.MethodPost, "/api/v1/admin/events", map[string]string{
		"title":     "Summer Night",
		"date":      "20.06.2025",
		"startTime": "20:15",
		"venue":     "Club",
		"location":  "Main St",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	calls := env.backend.calls()
	require.Equal(t, []string{"POST /events"}, calls)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(env.backend.body(0)), &sent))
	assert.Equal(t, "2025-06-20T00:00:00.000Z", sent["date"])
	assert.Equal(t, "1970-01-01T19:15:00.000Z", sent["startTime"])
	assert.Nil(t, sent["endDate"])

	var snap struct {
		State  string `json:"state"`
		Notice struct {
			Message string `json:"message"`
		} `json:"notice"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &snap))
	assert.Equal(t, "saved", snap.State)
	assert.Equal(t, service.MsgEventCreated, snap.Notice.Message)

	require.Len(t, env.audit.logs, 1)
	assert.Equal(t, models.AuditActionEventCreate, env.audit.logs[0].Action)
	assert.Equal(t, "3", *env.audit.logs[0].ResourceID)
}

func TestGetAndUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	rec := env.do(http.MethodGet, "/api/v1/admin/events/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Mode  string            `json:"mode"`
		Draft models.EventDraft `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &snap))
	assert.Equal(t, "edit", snap.Mode)
	assert.Equal(t, "21.06.2025", snap.Draft.Date)
	assert.Equal(t, "22.06.2025", snap.Draft.EndDate)

	rec = env.do(http.MethodPut, "/api/v1/admin/events/2", map[string]string{"title": "Renamed", "location": "Harbour"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"GET /events/2", "GET /events/2", "PUT /events/2"}, env.backend.calls())
}

func TestGetMissingEventRedirectsToList(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	rec := env.do(http.MethodGet, "/api/v1/admin/events/404", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, AdminEventsRedirect, decode(t, rec).Meta["redirect"])
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	rec := env.do(http.MethodDelete, "/api/v1/admin/events/1", nil)
	require.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Empty(t, env.backend.calls())

	rec = env.do(http.MethodDelete, "/api/v1/admin/events/1?confirm=true", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"DELETE /events/1"}, env.backend.calls())
	require.Len(t, env.audit.logs, 1)
	assert.Equal(t, models.AuditActionEventDelete, env.audit.logs[0].Action)
}

func TestUpstream401ClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	env.backend.rejectAll()

	rec := env.do(http.MethodGet, "/api/v1/admin/events/2", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/admin/login", decode(t, rec).Meta["redirect"])

	_, err := env.store.Get(context.Background(), tokenstore.Key(testSID))
	assert.True(t, errors.Is(err, tokenstore.ErrMissing))
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)

	rec := env.do(http.MethodGet, "/api/v1/admin/events/export?format=csv&filter=past", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "events-past-20250620.csv")
	assert.Contains(t, rec.Body.String(), "Yesterday Jam,19.06.2025")
	assert.NotContains(t, rec.Body.String(), "Weekend Fest")

	rec = env.do(http.MethodGet, "/api/v1/admin/events/export?format=xlsx", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = env.do(http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"sessions":"ok"}}`, rec.Body.String())
}
