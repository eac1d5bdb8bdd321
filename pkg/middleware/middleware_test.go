package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(l *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), l.Middleware())
	r.GET("/orders", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestID")) })
	r.POST("/orders", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/drops", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		for _, value := range v {
			req.Header.Add(k, value)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_MutatingRoutesOnly(t *testing.T) {
	r := newTestRouter(NewRateLimiter(1, 2))

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/orders", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	if w := do(r, http.MethodPost, "/orders", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("third POST status = %d, want 429", w.Code)
	}

	// other routes and reads have their own budget
	if w := do(r, http.MethodPost, "/drops", nil); w.Code != http.StatusOK {
		t.Errorf("POST /drops status = %d", w.Code)
	}
	for i := 0; i < 10; i++ {
		if w := do(r, http.MethodGet, "/orders", nil); w.Code != http.StatusOK {
			t.Fatalf("GET %d status = %d", i, w.Code)
		}
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newTestRouter(NewRateLimiter(0, 1))
	for i := 0; i < 20; i++ {
		if w := do(r, http.MethodPost, "/orders", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(NewRateLimiter(0, 1))

	w := do(r, http.MethodGet, "/orders", nil)
	id := w.Header().Get(RequestIDHeader)
	if id == "" || w.Body.String() != id {
		t.Errorf("generated id = %q, body = %q", id, w.Body.String())
	}

	w = do(r, http.MethodGet, "/orders", http.Header{RequestIDHeader: {"abc-123"}})
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("propagated id = %q", got)
	}
}
