package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ghostwriter-ai-api/pkg/logger"
)

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
	limit int
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	f.limit = limit
	return f.allow, f.err
}

func serve(r *gin.Engine, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func limitedEngine(cfg RateLimitConfig, limiter RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/projects/:pid/generate", ProjectRateLimit(cfg, limiter), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestProjectRateLimit(t *testing.T) {
	cfg := RateLimitConfig{Enabled: true, RequestsPerMinute: 5, KeyPrefix: "gw:ratelimit"}

	t.Run("allowed", func(t *testing.T) {
		f := &fakeLimiter{allow: true}
		w := serve(limitedEngine(cfg, f), "/v1/projects/p1/generate", nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("status = %d", w.Code)
		}
		if len(f.keys) != 1 || f.keys[0] != "gw:ratelimit:p1" || f.limit != 5 {
			t.Errorf("keys = %v, limit = %d", f.keys, f.limit)
		}
	})

	t.Run("denied", func(t *testing.T) {
		w := serve(limitedEngine(cfg, &fakeLimiter{allow: false}), "/v1/projects/p1/generate", nil)
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d", w.Code)
		}
		if w.Header().Get("Retry-After") != "60" {
			t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
		}
		if !strings.Contains(w.Body.String(), "rate limit exceeded") {
			t.Errorf("body = %s", w.Body.String())
		}
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		w := serve(limitedEngine(cfg, &fakeLimiter{err: errors.New("redis down")}), "/v1/projects/p1/generate", nil)
		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		f := &fakeLimiter{}
		w := serve(limitedEngine(RateLimitConfig{Enabled: false}, f), "/v1/projects/p1/generate", nil)
		if w.Code != http.StatusNoContent || len(f.keys) != 0 {
			t.Errorf("status = %d, calls = %d", w.Code, len(f.keys))
		}
	})

	t.Run("nil limiter", func(t *testing.T) {
		w := serve(limitedEngine(cfg, nil), "/v1/projects/p1/generate", nil)
		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d", w.Code)
		}
	})
}

func TestRequestIDEnrichesContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())

	var got context.Context
	r.POST("/v1/projects/:pid/chapters/:n/generate", func(c *gin.Context) {
		got = c.Request.Context()
		c.Status(http.StatusOK)
	})

	w := serve(r, "/v1/projects/p9/chapters/3/generate", map[string]string{RequestIDHeader: "req-1"})
	if w.Header().Get(RequestIDHeader) != "req-1" {
		t.Errorf("request id header = %q", w.Header().Get(RequestIDHeader))
	}
	if v, _ := got.Value(logger.ProjectIDKey).(string); v != "p9" {
		t.Errorf("project id = %v", got.Value(logger.ProjectIDKey))
	}
	if v, _ := got.Value(logger.ChapterNumberKey).(int); v != 3 {
		t.Errorf("chapter number = %v", got.Value(logger.ChapterNumberKey))
	}

	w = serve(r, "/v1/projects/p9/chapters/3/generate", map[string]string{RequestIDHeader: strings.Repeat("x", 200)})
	if id := w.Header().Get(RequestIDHeader); len(id) != 36 {
		t.Errorf("oversized request id not replaced: %q", id)
	}
}

func TestRecoveryReturnsJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.POST("/boom", func(*gin.Context) { panic("boom") })

	w := serve(r, "/boom", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "boom") || !strings.Contains(w.Body.String(), "internal server error") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRecoveryIgnoresBrokenPipe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.POST("/gone", func(*gin.Context) {
		panic(&net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)})
	})

	w := serve(r, "/gone", nil)
	if w.Body.Len() != 0 {
		t.Errorf("wrote body after broken pipe: %s", w.Body.String())
	}
}
