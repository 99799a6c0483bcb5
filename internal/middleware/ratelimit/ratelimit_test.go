package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()
	now := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("1.1.1.1") || !rl.Allow("1.1.1.1") {
		t.Fatalf("first two requests should pass")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatalf("third request should be limited")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatalf("other clients are independent")
	}
	if got := rl.RetryAfter("1.1.1.1"); got != 60 {
		t.Fatalf("RetryAfter = %d", got)
	}

	now = now.Add(time.Minute)
	if !rl.Allow("1.1.1.1") {
		t.Fatalf("window should have reset")
	}
	if m := rl.GetMetrics(); m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestMiddlewareOnlyThrottlesMutations(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	defer rl.Stop()
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/periods/2025-Q1/entries", nil))
		return rr.Code
	}
	if c := do(http.MethodPost); c != http.StatusNoContent {
		t.Fatalf("first POST = %d", c)
	}
	if c := do(http.MethodPost); c != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d", c)
	}
	for i := 0; i < 3; i++ {
		if c := do(http.MethodGet); c != http.StatusNoContent {
			t.Fatalf("GET = %d", c)
		}
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(11 * time.Minute)
	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 0 {
		t.Fatalf("stale client kept")
	}
}
