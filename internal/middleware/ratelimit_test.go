package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/dailydoodle/internal/handlers"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

type fakeScripter struct {
	redis.Scripter
	counts map[string]int64
	keys   []string
	err    error
}

func newFakeScripter() *fakeScripter {
	return &fakeScripter{counts: map[string]int64{}}
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, "", keys, args...)
}

func (f *fakeScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.keys = append(f.keys, keys[0])
	f.counts[keys[0]]++
	cmd.SetVal(f.counts[keys[0]])
	return cmd
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	store := newFakeScripter()
	rl := NewRateLimiter(store, 2, time.Minute, "test:", func(r *http.Request) string { return "k" }, true)
	handler := rl.Middleware(okHandler())

	for i, want := range []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		if rr.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rr.Code)
		}
	}
	if store.keys[0] != "test:k" {
		t.Fatalf("unexpected key %q", store.keys[0])
	}
}

func TestRateLimiter_RedisErrors(t *testing.T) {
	store := newFakeScripter()
	store.err = errors.New("connection refused")

	rr := httptest.NewRecorder()
	NewRateLimiter(store, 1, time.Minute, "test:", nil, true).Middleware(okHandler()).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("fail-open limiter should pass, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	NewRateLimiter(store, 1, time.Minute, "test:", nil, false).Middleware(okHandler()).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed limiter should reject, got %d", rr.Code)
	}
}

func TestRateLimiter_DisabledWithoutLimit(t *testing.T) {
	store := newFakeScripter()
	handler := NewRateLimiter(store, 0, time.Minute, "test:", nil, true).Middleware(okHandler())
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected pass-through, got %d", rr.Code)
		}
	}
	if len(store.keys) != 0 {
		t.Fatalf("expected no redis calls, got %v", store.keys)
	}
}

func TestUploadRateLimiter_KeysByUser(t *testing.T) {
	store := newFakeScripter()
	handler := NewUploadRateLimiter(store, 5).Middleware(okHandler())
	user := &models.User{ID: uuid.New()}

	req := httptest.NewRequest(http.MethodPost, "/api/drawings", nil)
	req = req.WithContext(handlers.SetUserInContext(req.Context(), user))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	want := "doodle:ratelimit:upload:user:" + user.ID.String()
	if len(store.keys) != 1 || store.keys[0] != want {
		t.Fatalf("expected key %q, got %v", want, store.keys)
	}
}

func TestUserOrIPKey_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := UserOrIPKey(req); got != "ip:203.0.113.7" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "9.9.9.9:1", "5.6.7.8"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"bare remote", nil, "9.9.9.9", "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
