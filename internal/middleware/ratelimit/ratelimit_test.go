package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, rpm int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: rpm, CleanupInterval: time.Hour})
	rl.now = clock.now
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3)

	for i := 1; i <= 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request in the window should be rejected")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other clients have their own budget")
	}

	clock.advance(time.Minute)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("budget should reset after the window")
	}
}

func TestLimiter_SteadyTrafficDoesNotExtendWindow(t *testing.T) {
	rl, clock := newTestLimiter(t, 2)

	rl.Allow("ip")
	clock.advance(40 * time.Second)
	rl.Allow("ip")
	clock.advance(30 * time.Second)

	if !rl.Allow("ip") {
		t.Fatal("window started 70s ago and should have reset")
	}
}

func TestLimiter_CleanupStaleEntries(t *testing.T) {
	rl, clock := newTestLimiter(t, 10)

	rl.Allow("old")
	clock.advance(11 * time.Minute)
	rl.Allow("fresh")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Errorf("cleanupStaleEntries() = %d, want 1", removed)
	}
	if got := rl.ActiveClients(); got != 1 {
		t.Errorf("ActiveClients() = %d, want 1", got)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewLimiter(Config{})
	rl.Stop()
	rl.Stop()
	if rl.requestsPerMinute != 60 {
		t.Errorf("default requests per minute = %d, want 60", rl.requestsPerMinute)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	extract := func(r *http.Request) string { return r.RemoteAddr }

	tests := []struct {
		name    string
		onLimit func(http.ResponseWriter, *http.Request)
		want    []int
	}{
		{"default rejection", nil, []int{http.StatusNoContent, http.StatusTooManyRequests}},
		{"custom rejection", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }, []int{http.StatusNoContent, http.StatusServiceUnavailable}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := rl.Middleware(extract, tt.onLimit)(ok)
			for j, want := range tt.want {
				req := httptest.NewRequest(http.MethodPost, "/", nil)
				req.RemoteAddr = string(rune('a' + i))
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				if rec.Code != want {
					t.Fatalf("request %d: status = %d, want %d", j, rec.Code, want)
				}
				if want != http.StatusNoContent && rec.Header().Get("Retry-After") != "60" {
					t.Errorf("missing Retry-After header")
				}
			}
		})
	}
}
