package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestRateLimitConfig_Validate tests configuration validation.
func TestRateLimitConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  RateLimitConfig
		wantErr bool
	}{
		{"valid", RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Minute}, false},
		{"zero requests", RateLimitConfig{RequestsPerWindow: 0, WindowDuration: time.Minute}, true},
		{"negative requests", RateLimitConfig{RequestsPerWindow: -1, WindowDuration: time.Minute}, true},
		{"zero window", RateLimitConfig{RequestsPerWindow: 10, WindowDuration: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestInMemoryStore_Allow tests the fixed window counter.
func TestInMemoryStore_Allow(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _ := store.Allow(ctx, "key-a", config)
		if !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
	}

	allowed, retryAfter := store.Allow(ctx, "key-a", config)
	if allowed {
		t.Error("4th request should be blocked")
	}
	if retryAfter <= 0 || retryAfter > 60 {
		t.Errorf("expected retryAfter in (0, 60], got %d", retryAfter)
	}

	// Independent keys
	if allowed, _ := store.Allow(ctx, "key-b", config); !allowed {
		t.Error("different key should have its own budget")
	}
}

// TestInMemoryStore_WindowReset tests that an expired window resets the count.
func TestInMemoryStore_WindowReset(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: 10 * time.Millisecond}
	ctx := context.Background()

	if allowed, _ := store.Allow(ctx, "key", config); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := store.Allow(ctx, "key", config); allowed {
		t.Fatal("second request should be blocked")
	}

	time.Sleep(15 * time.Millisecond)

	if allowed, _ := store.Allow(ctx, "key", config); !allowed {
		t.Error("request after window expiry should be allowed")
	}
}

// TestInMemoryStore_Cleanup tests expired bucket removal.
func TestInMemoryStore_Cleanup(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Millisecond}
	ctx := context.Background()

	store.Allow(ctx, "stale", config)
	time.Sleep(5 * time.Millisecond)
	store.Cleanup()

	store.mu.RLock()
	_, exists := store.buckets["stale"]
	store.mu.RUnlock()
	if exists {
		t.Error("expected the expired bucket to be removed")
	}
}

// TestIPKeyFunc tests client IP extraction precedence.
func TestIPKeyFunc(t *testing.T) {
	keyFunc := IPKeyFunc()

	tests := []struct {
		name    string
		setup   func(*http.Request)
		wantKey string
	}{
		{
			name:    "x-forwarded-for first hop",
			setup:   func(r *http.Request) { r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1") },
			wantKey: "1.2.3.4",
		},
		{
			name:    "x-real-ip fallback",
			setup:   func(r *http.Request) { r.Header.Set("X-Real-IP", "5.6.7.8") },
			wantKey: "5.6.7.8",
		},
		{
			name:    "remote addr fallback",
			setup:   func(r *http.Request) { r.RemoteAddr = "9.10.11.12:34567" },
			wantKey: "9.10.11.12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed", nil)
			tt.setup(req)
			if got := keyFunc(req); got != tt.wantKey {
				t.Errorf("expected key %q, got %q", tt.wantKey, got)
			}
		})
	}
}

// TestUserKeyFunc tests user preference over IP.
func TestUserKeyFunc(t *testing.T) {
	keyFunc := UserKeyFunc()

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req = req.WithContext(SetUserID(req.Context(), "user-123"))
	if got := keyFunc(req); got != "user:user-123" {
		t.Errorf("expected user key, got %q", got)
	}

	anon := httptest.NewRequest(http.MethodGet, "/feed", nil)
	anon.RemoteAddr = "1.2.3.4:5678"
	if got := keyFunc(anon); got != "ip:1.2.3.4" {
		t.Errorf("expected ip key, got %q", got)
	}
}

// TestRateLimiter_Middleware tests the 429 response path.
func TestRateLimiter_Middleware(t *testing.T) {
	store := NewInMemoryRateLimitStore()
	config := RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}
	handler := RateLimiter(store, config, IPKeyFunc())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/feed", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("expected X-RateLimit-Reset header")
	}
}
