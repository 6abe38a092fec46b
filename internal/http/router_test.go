package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-leads-backend/internal/auth"
	"github.com/tbourn/go-leads-backend/internal/config"
	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/http/errcode"
	"github.com/tbourn/go-leads-backend/internal/http/handlers"
	"github.com/tbourn/go-leads-backend/internal/http/middleware"
	"github.com/tbourn/go-leads-backend/internal/notify"
	"github.com/tbourn/go-leads-backend/internal/repo"
)

const (
	testUser = "operator"
	testPass = "s3cret"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/",
		RateRPS:        100,
		RateBurst:      50,
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func testAuth(t *testing.T) auth.Authenticator {
	t.Helper()
	a, err := auth.NewStaticCredentials(config.AuthConfig{Username: testUser, Password: testPass})
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	return a
}

type countingNotifier struct {
	mu   sync.Mutex
	subs []notify.Submission
}

func (n *countingNotifier) Enqueue(_ context.Context, s notify.Submission) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, s)
	return true
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

func newServer(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB, *countingNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	n := &countingNotifier{}
	RegisterRoutes(r, db, testAuth(t), n, cfg)
	return r, db, n
}

type reqOpt func(*http.Request)

func withBasic(u, p string) reqOpt { return func(r *http.Request) { r.SetBasicAuth(u, p) } }

func withHeader(k, v string) reqOpt { return func(r *http.Request) { r.Header.Set(k, v) } }

func serve(r http.Handler, method, path, body string, opts ...reqOpt) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _, _ := newServer(t, testConfig())

	// /health works
	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	// /metrics is wired
	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404 envelope
	w = serve(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), errcode.NotFound) {
		t.Fatalf("GET /nope expected 404 envelope, got %d %s", w.Code, w.Body.String())
	}

	// NoMethod → 405 (POST /health, DELETE /leads/1)
	if w = serve(r, http.MethodPost, "/health", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
	if w = serve(r, http.MethodDelete, "/leads/1", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /leads/1 expected 405, got %d", w.Code)
	}

	// Swagger disabled by default
	if w = serve(r, http.MethodGet, "/swagger/index.html", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _, _ := newServer(t, cfg)

	w := serve(r, http.MethodGet, "/health", "", withHeader("Origin", "http://example.com"))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

// The acceptance flow: submit, update, list, reject bad input, reject anonymous reads.
func TestEndToEnd_LeadLifecycle(t *testing.T) {
	r, db, n := newServer(t, testConfig())

	// Create → 201 PENDING
	w := serve(r, http.MethodPost, "/leads", `{"first_name":"Ana","last_name":"Lee","email":"ana@x.com","resume":"link"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created domain.Lead
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("json: %v", err)
	}
	if created.State != domain.LeadStatePending || created.ID == 0 {
		t.Fatalf("unexpected created lead: %+v", created)
	}
	if n.count() != 1 {
		t.Fatalf("expected one notification job, got %d", n.count())
	}

	// Update → 200 REACHED_OUT
	path := fmt.Sprintf("/leads/%d", created.ID)
	w = serve(r, http.MethodPut, path, `{"state":"REACHED_OUT"}`, withBasic(testUser, testPass))
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	var updated domain.Lead
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.State != domain.LeadStateReachedOut || updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("unexpected updated lead: %+v", updated)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "private") {
		t.Fatalf("protected responses must be private, got %q", cc)
	}

	// List (authenticated) contains the record
	w = serve(r, http.MethodGet, "/leads", "", withBasic(testUser, testPass))
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	var items []domain.Lead
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(items) != 1 || items[0].ID != created.ID || items[0].State != domain.LeadStateReachedOut {
		t.Fatalf("unexpected list: %+v", items)
	}

	// Get one (authenticated)
	if w = serve(r, http.MethodGet, path, "", withBasic(testUser, testPass)); w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}

	// Invalid email → 422, nothing persisted
	w = serve(r, http.MethodPost, "/leads", `{"first_name":"Bo","last_name":"Ng","email":"not-an-email","resume":"r"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid email: %d", w.Code)
	}
	if total, _, _ := repo.LeadsStats(context.Background(), db); total != 1 {
		t.Fatalf("invalid create must not persist, total=%d", total)
	}

	// Duplicate → 409
	if w = serve(r, http.MethodPost, "/leads", `{"first_name":"Ana","last_name":"Lee","email":"ana@x.com","resume":"link"}`); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", w.Code)
	}
}

func TestProtectedRoutes_RequireCredentials(t *testing.T) {
	r, _, _ := newServer(t, testConfig())

	cases := []struct {
		method, path, body string
		opts               []reqOpt
	}{
		{http.MethodGet, "/leads", "", nil},
		{http.MethodGet, "/leads", "", []reqOpt{withBasic(testUser, "wrong")}},
		{http.MethodGet, "/leads", "", []reqOpt{withBasic("someone", testPass)}},
		{http.MethodGet, "/leads/1", "", nil},
		{http.MethodPut, "/leads/1", `{"state":"PENDING"}`, nil},
	}
	for _, tc := range cases {
		w := serve(r, tc.method, tc.path, tc.body, tc.opts...)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: want 401, got %d", tc.method, tc.path, w.Code)
		}
		if got := w.Header().Get("WWW-Authenticate"); got != `Basic realm="leads"` {
			t.Fatalf("%s %s: challenge %q", tc.method, tc.path, got)
		}
		if !strings.Contains(w.Body.String(), errcode.Unauthorized) {
			t.Fatalf("%s %s: body %s", tc.method, tc.path, w.Body.String())
		}
	}
}

func TestCreateLead_IdempotencyReplay_ThroughRouter(t *testing.T) {
	r, db, n := newServer(t, testConfig())
	body := `{"first_name":"Ana","last_name":"Lee","email":"ana@x.com","resume":"link"}`

	first := serve(r, http.MethodPost, "/leads", body, withHeader(middleware.HeaderIdempotencyKey, "k-1"))
	second := serve(r, http.MethodPost, "/leads", body, withHeader(middleware.HeaderIdempotencyKey, "k-1"))
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("codes: %d %d (%s)", first.Code, second.Code, second.Body.String())
	}
	if second.Header().Get(handlers.HeaderReplayed) != "true" {
		t.Fatalf("second response should be a replay")
	}
	var a, b domain.Lead
	_ = json.Unmarshal(first.Body.Bytes(), &a)
	_ = json.Unmarshal(second.Body.Bytes(), &b)
	if a.ID != b.ID {
		t.Fatalf("replay returned a different id: %d vs %d", a.ID, b.ID)
	}
	if n.count() != 1 {
		t.Fatalf("replay must not notify again, got %d", n.count())
	}

	rec, err := repo.GetIdempotency(context.Background(), db, handlers.CreateLeadScope, "k-1", time.Now().UTC())
	if err != nil || rec.LeadID != a.ID || rec.Status != http.StatusCreated || len(rec.Fingerprint) != 64 {
		t.Fatalf("idempotency record: %+v %v", rec, err)
	}

	// Malformed key → 400
	if w := serve(r, http.MethodPost, "/leads", body, withHeader(middleware.HeaderIdempotencyKey, "no spaces allowed")); w.Code != http.StatusBadRequest {
		t.Fatalf("bad key: want 400, got %d", w.Code)
	}
}

func TestCreateLead_ReusedKeyWithOtherPayload_Rejected(t *testing.T) {
	r, db, n := newServer(t, testConfig())

	ana := `{"first_name":"Ana","last_name":"Lee","email":"ana@x.com","resume":"secret-cv"}`
	eve := `{"first_name":"Eve","last_name":"Mallory","email":"eve@x.com","resume":"eve-cv"}`

	if w := serve(r, http.MethodPost, "/leads", ana, withHeader(middleware.HeaderIdempotencyKey, "1")); w.Code != http.StatusCreated {
		t.Fatalf("ana: %d %s", w.Code, w.Body.String())
	}
	w := serve(r, http.MethodPost, "/leads", eve, withHeader(middleware.HeaderIdempotencyKey, "1"))
	if w.Code != http.StatusUnprocessableEntity || !strings.Contains(w.Body.String(), errcode.BadIdempotencyKey) {
		t.Fatalf("want 422 bad_idempotency_key, got %d %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "ana@x.com") || strings.Contains(w.Body.String(), "secret-cv") {
		t.Fatalf("unauthenticated caller received another lead: %s", w.Body.String())
	}
	if total, _, _ := repo.LeadsStats(context.Background(), db); total != 1 {
		t.Fatalf("expected only ana stored, total=%d", total)
	}
	if n.count() != 1 {
		t.Fatalf("rejected request must not notify, got %d", n.count())
	}

	// The stored record still answers ana's own retry.
	again := serve(r, http.MethodPost, "/leads", ana, withHeader(middleware.HeaderIdempotencyKey, "1"))
	if again.Code != http.StatusCreated || again.Header().Get(handlers.HeaderReplayed) != "true" {
		t.Fatalf("ana retry: %d %s", again.Code, again.Body.String())
	}
}

func TestCreateLead_RateLimited_ReplaysCount(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	r, _, _ := newServer(t, cfg)

	body := `{"first_name":"A","last_name":"B","email":"a@x.com","resume":"r"}`
	first := serve(r, http.MethodPost, "/leads", body, withHeader(middleware.HeaderIdempotencyKey, "rl-1"))
	if first.Code != http.StatusCreated {
		t.Fatalf("first: %d", first.Code)
	}

	w := serve(r, http.MethodPost, "/leads", `{"first_name":"C","last_name":"D","email":"c@x.com","resume":"r"}`)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("want 429 with Retry-After, got %d", w.Code)
	}

	// A known key is no pass around the limiter.
	replay := serve(r, http.MethodPost, "/leads", body, withHeader(middleware.HeaderIdempotencyKey, "rl-1"))
	if replay.Code != http.StatusTooManyRequests {
		t.Fatalf("replay should be limited like any request, got %d", replay.Code)
	}
}

func TestRegisterRoutes_BasePathAndSwagger(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v1"
	cfg.SwaggerEnabled = true
	r, _, _ := newServer(t, cfg)

	if w := serve(r, http.MethodGet, "/api/v1/leads", "", withBasic(testUser, testPass)); w.Code != http.StatusOK {
		t.Fatalf("prefixed list: %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/leads", "", withBasic(testUser, testPass)); w.Code != http.StatusNotFound {
		t.Fatalf("unprefixed path should 404, got %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/swagger/doesnotexist", ""); w.Code == http.StatusNotFound && strings.Contains(w.Body.String(), "route not found") {
		t.Fatalf("swagger route not mounted")
	}
}

func TestRegisterRoutes_NilNotifier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testAuth(t), nil, testConfig())

	if w := serve(r, http.MethodPost, "/leads", `{"first_name":"A","last_name":"B","email":"a@x.com","resume":"r"}`); w.Code != http.StatusCreated {
		t.Fatalf("create without notifier: %d", w.Code)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	// non-root prefix
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := serve(r, http.MethodGet, path, "")
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}
}

func Test_idempotencyShim_FindSave(t *testing.T) {
	db := newTestDB(t)
	shim := idempotencyShim{db: db, ttl: time.Minute}
	ctx := context.Background()
	now := time.Now().UTC()

	if _, found, err := shim.Find(ctx, handlers.CreateLeadScope, "k", now); err != nil || found {
		t.Fatalf("miss expected, got found=%v err=%v", found, err)
	}
	if err := shim.Save(ctx, handlers.CreateLeadScope, "k", "fp-7", 7, http.StatusCreated); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Losing a race to another writer is not an error.
	if err := shim.Save(ctx, handlers.CreateLeadScope, "k", "fp-8", 8, http.StatusCreated); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	res, found, err := shim.Find(ctx, handlers.CreateLeadScope, "k", now)
	if err != nil || !found || res.LeadID != 7 || res.Fingerprint != "fp-7" {
		t.Fatalf("hit expected for lead 7, got %+v found=%v err=%v", res, found, err)
	}
	// Expired records are invisible.
	if _, found, _ := shim.Find(ctx, handlers.CreateLeadScope, "k", now.Add(2*time.Minute)); found {
		t.Fatalf("expired record should not be found")
	}
}

func Test_leadRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	shim := leadRepoShim{}
	ctx := context.Background()
	now := time.Now().UTC()

	l := &domain.Lead{FirstName: "A", LastName: "B", Email: "s@x.com", Resume: "r", State: domain.LeadStatePending, CreatedAt: now, UpdatedAt: now}
	if err := shim.CreateLead(ctx, db, l); err != nil || l.ID == 0 {
		t.Fatalf("CreateLead: id=%d err=%v", l.ID, err)
	}
	if all, err := shim.ListLeads(ctx, db); err != nil || len(all) != 1 {
		t.Fatalf("ListLeads: %v %v", all, err)
	}
	if err := shim.UpdateLeadState(ctx, db, l.ID, domain.LeadStateReachedOut, now.Add(time.Second)); err != nil {
		t.Fatalf("UpdateLeadState: %v", err)
	}
	got, err := shim.GetLead(ctx, db, l.ID)
	if err != nil || got.State != domain.LeadStateReachedOut {
		t.Fatalf("GetLead: %+v %v", got, err)
	}
}
