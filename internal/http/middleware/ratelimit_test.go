package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.7:1234"

	fn := KeyByUserOrIP()
	if got := fn(c); got != "ip:203.0.113.7" {
		t.Fatalf("expected ip key, got %q", got)
	}
	c.Set(UserIDKey, "admin")
	if got := fn(c); got != "user:admin" {
		t.Fatalf("expected user key, got %q", got)
	}
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.0001, 2, nil)

	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.POST("/leads", func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/leads", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests && w.Header().Get("Retry-After") != "1" {
			t.Fatalf("429 must carry Retry-After")
		}
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.sweepEvery = 2

	old := rl.limiter("ip:old")
	now = now.Add(rl.ttl)
	rl.limiter("ip:new") // second lookup triggers sweep

	rl.mu.Lock()
	_, stillThere := rl.visitors["ip:old"]
	rl.mu.Unlock()
	if stillThere {
		t.Fatalf("idle bucket should have been evicted")
	}
	if rl.limiter("ip:old") == old {
		t.Fatalf("expected a fresh limiter after eviction")
	}
}
