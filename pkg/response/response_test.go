package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type codedError struct {
	code string
	msg  string
}

func (e *codedError) Error() string { return e.msg }
func (e *codedError) Code() string  { return e.code }

func handle(method string, data interface{}, err error) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)

	Handle(c, data, err)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		err     error
		status  int
		code    string
		message string
	}{
		{"get success", http.MethodGet, nil, http.StatusOK, "", ""},
		{"post success", http.MethodPost, nil, http.StatusCreated, "", ""},
		{"coded conflict", http.MethodPost, &codedError{ErrCodeDuplicateResource, "P already exists in row 1"}, http.StatusConflict, ErrCodeDuplicateResource, "P already exists in row 1"},
		{"wrapped coded", http.MethodPost, fmt.Errorf("approve: %w", &codedError{ErrCodeUnauthorized, "Invalid password for action P"}), http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid password for action P"},
		{"unknown code", http.MethodGet, &codedError{"SOMETHING", "odd"}, http.StatusInternalServerError, "SOMETHING", "odd"},
		{"record not found", http.MethodGet, gorm.ErrRecordNotFound, http.StatusNotFound, ErrCodeNotFound, "Resource not found"},
		{"plain error", http.MethodGet, errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternalError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := handle(tt.method, gin.H{"ok": true}, tt.err)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.err == nil {
				if !body.Success || body.Error != nil {
					t.Errorf("body = %+v", body)
				}
				return
			}
			if body.Success || body.Error == nil {
				t.Fatalf("body = %+v", body)
			}
			if body.Error.Code != tt.code {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.code)
			}
			if tt.message != "" && body.Error.Message != tt.message {
				t.Errorf("message = %q, want %q", body.Error.Message, tt.message)
			}
		})
	}
}

func TestTooManyRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	TooManyRequests(c, "slow down")

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", w.Code)
	}
}
