package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Window(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request inside the window should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other keys are independent")
	}
	if got := l.Remaining("a"); got != 0 {
		t.Errorf("Remaining(a) = %d, want 0", got)
	}

	now = now.Add(time.Minute + time.Second)
	if !l.Allow("a") {
		t.Fatal("new window should reset the count")
	}
	if got := l.Remaining("a"); got != 1 {
		t.Errorf("Remaining(a) = %d, want 1", got)
	}

	l.Reset("a")
	if got := l.Remaining("a"); got != 2 {
		t.Errorf("Remaining after Reset = %d, want 2", got)
	}
	l.Stop()
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.2:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": " 198.51.100.4 "}, "10.0.0.2:1234", "198.51.100.4"},
		{"remote with port", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/signup", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPerIP(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()
	h := PerIP(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	serve := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/signup", nil)
		r.RemoteAddr = "192.0.2.9:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	if rec := serve(); rec.Code != http.StatusAccepted {
		t.Fatalf("first request = %d", rec.Code)
	}
	rec := serve()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := NewLoginLimiter(3, 2, 1)
	defer ll.Stop()

	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = ip + ":5000"
		return r
	}

	// Per-account limit applies across addresses.
	if ok, _ := ll.Check(req("10.0.0.1"), "Ann@Example.com"); !ok {
		t.Fatal("first attempt should pass")
	}
	if ok, _ := ll.Check(req("10.0.0.2"), "ann@example.com "); !ok {
		t.Fatal("second attempt should pass")
	}
	ok, wait := ll.Check(req("10.0.0.3"), "ANN@example.com")
	if ok || wait != 5*time.Minute {
		t.Fatalf("third attempt = %v, %v; want blocked for 5m", ok, wait)
	}
	ll.ResetAccount("ann@example.com")
	if ok, _ := ll.Check(req("10.0.0.4"), "ann@example.com"); !ok {
		t.Fatal("attempt after reset should pass")
	}

	// Per-IP limit applies across accounts.
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if ok, _ := ll.Check(req("10.0.0.9"), email); !ok {
			t.Fatalf("attempt %d from one IP should pass", i)
		}
	}
	if ok, wait := ll.Check(req("10.0.0.9"), "d@example.com"); ok || wait != time.Minute {
		t.Fatalf("fourth attempt from one IP = %v, %v; want blocked for 1m", ok, wait)
	}

	if ok, _ := ll.AllowLimited("new@example.com"); !ok {
		t.Fatal("first limited sign-in should pass")
	}
	if ok, wait := ll.AllowLimited("NEW@example.com"); ok || wait != time.Hour {
		t.Fatalf("second limited sign-in = %v, %v; want blocked for 1h", ok, wait)
	}
}
