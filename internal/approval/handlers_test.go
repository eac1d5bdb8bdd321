package approval

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/pkg/response"
)

func newTestRouter(t *testing.T) (*gin.Engine, *queue.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, store := newTestService(t)
	h := NewGinHandlers(svc)

	r := gin.New()
	r.POST("/orders", h.SubmitOrderHandler())
	r.POST("/orders/:row/approve/:approver", h.ApproveHandler(Orders))
	r.DELETE("/orders/:row", h.CancelOrderHandler())
	r.DELETE("/approved/:row", h.RemoveApprovedHandler())
	r.POST("/modifications", h.ModifyOrderHandler())
	r.POST("/modifications/pending/:row/approve/:approver", h.ApproveHandler(Modifications))
	r.POST("/drops", h.DropOrderHandler())
	return r, store
}

func serve(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, response.Response) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestApproveHandler(t *testing.T) {
	r, store := newTestRouter(t)
	store.Set(queue.Orders, "EURUSD buy 0.10 1.1000 0 0\n")

	w, body := serve(r, formRequest(http.MethodPost, "/orders/1/approve/p", url.Values{"password": {"pw-p"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !body.Success || body.Message != "P added to row 1" {
		t.Errorf("body = %+v", body)
	}

	// password in the query string, approver in upper case
	w, body = serve(r, httptest.NewRequest(http.MethodPost, "/orders/1/approve/R?password=pw-r", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(body.Message, "Order moved to approved list") {
		t.Errorf("message = %q", body.Message)
	}
	if got := store.Content(queue.Approved); got != "EURUSD buy 0.10 1.1000 0 0\n" {
		t.Errorf("approved = %q", got)
	}
}

func TestApproveHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		form   url.Values
		status int
		code   string
	}{
		{"bad password", "/orders/1/approve/p", url.Values{"password": {"nope"}}, http.StatusUnauthorized, response.ErrCodeUnauthorized},
		{"no password", "/orders/1/approve/p", url.Values{}, http.StatusUnauthorized, response.ErrCodeUnauthorized},
		{"unknown approver", "/orders/1/approve/x", url.Values{"password": {"pw-p"}}, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"row not a number", "/orders/abc/approve/p", url.Values{"password": {"pw-p"}}, http.StatusBadRequest, response.ErrCodeBadRequest},
		{"row out of range", "/orders/9/approve/p", url.Values{"password": {"pw-p"}}, http.StatusBadRequest, response.ErrCodeValidationFailed},
		{"duplicate flag", "/orders/2/approve/p", url.Values{"password": {"pw-p"}}, http.StatusConflict, response.ErrCodeDuplicateResource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestRouter(t)
			original := "EURUSD buy 0.10 1.1000 0 0\nEURUSD sell 0.10 1.1000 0 0 p\n"
			store.Set(queue.Orders, original)

			w, body := serve(r, formRequest(http.MethodPost, tt.target, tt.form))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if body.Success || body.Error == nil || body.Error.Code != tt.code {
				t.Errorf("body = %s", w.Body.String())
			}
			if got := store.Content(queue.Orders); got != original {
				t.Errorf("orders changed: %q", got)
			}
		})
	}
}

func TestSubmitOrderHandler(t *testing.T) {
	r, store := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"symbol":"EURUSD","type":"buy","lots":"0.5","stop_loss":"1.09"}`))
	req.Header.Set("Content-Type", "application/json")

	w, body := serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if body.Message != "New buy order added for EURUSD" {
		t.Errorf("message = %q", body.Message)
	}
	if got := store.Content(queue.Orders); got != "EURUSD buy 0.5 0 1.09 0\n" {
		t.Errorf("orders = %q", got)
	}

	w, body = serve(r, formRequest(http.MethodPost, "/orders", url.Values{"symbol": {"EURUSD"}, "type": {"hold"}, "lots": {"1"}}))
	if w.Code != http.StatusBadRequest || body.Message != "Invalid order type" {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestCancelAndRemoveHandlers(t *testing.T) {
	r, store := newTestRouter(t)
	store.Set(queue.Orders, "EURUSD buy 0.10 1.1000 0 0 p\n")
	store.Set(queue.Approved, "EURUSD sell 1 0 0 0\n")

	w, body := serve(r, httptest.NewRequest(http.MethodDelete, "/orders/1", nil))
	if w.Code != http.StatusOK || body.Message != "Order row 1 canceled and removed" {
		t.Errorf("cancel: status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := store.Content(queue.Orders); got != "" {
		t.Errorf("orders = %q", got)
	}

	w, body = serve(r, httptest.NewRequest(http.MethodDelete, "/approved/1", nil))
	if w.Code != http.StatusOK || body.Message != "Approved order row 1 removed" {
		t.Errorf("remove: status = %d, body = %s", w.Code, w.Body.String())
	}

	w, _ = serve(r, httptest.NewRequest(http.MethodDelete, "/approved/1", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("remove from empty queue status = %d", w.Code)
	}
}

func TestDropAndModifyHandlers(t *testing.T) {
	r, store := newTestRouter(t)

	w, body := serve(r, formRequest(http.MethodPost, "/drops", url.Values{"ticket": {"777"}}))
	if w.Code != http.StatusOK || body.Message != "Ticket 777 added to dropped orders" {
		t.Errorf("drop: status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := store.Content(queue.Dropped); got != "777\n" {
		t.Errorf("dropped = %q", got)
	}

	w, _ = serve(r, formRequest(http.MethodPost, "/modifications",
		url.Values{"ticket": {"777"}, "stop_loss": {"1.1"}, "take_profit": {"1.2"}}))
	if w.Code != http.StatusOK {
		t.Fatalf("modify: status = %d, body = %s", w.Code, w.Body.String())
	}

	w, body = serve(r, formRequest(http.MethodPost, "/modifications/pending/1/approve/p", url.Values{"password": {"pw-p"}}))
	if w.Code != http.StatusOK || body.Message != "P added to row 1" {
		t.Errorf("approve modification: status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := store.Content(queue.ToBeModified); got != "777 1.1 1.2 p" {
		t.Errorf("to_be_modified = %q", got)
	}
}
