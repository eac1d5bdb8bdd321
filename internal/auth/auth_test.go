package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/internal/record"
)

func writeSecret(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestValidatePassword(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "pass_r.txt", "secret123\n")
	svc := NewService(dir)

	tests := []struct {
		name      string
		approver  record.Approver
		submitted string
		want      bool
	}{
		{"exact match after trimming stored secret", record.ApproverR, "secret123", true},
		{"wrong password", record.ApproverR, "secret124", false},
		{"empty password", record.ApproverR, "", false},
		// The stored secret is trimmed but the submission is compared as sent.
		// This asymmetry is kept on purpose for compatibility with existing clients.
		{"submitted value is not trimmed", record.ApproverR, "secret123 ", false},
		{"missing secret file", record.ApproverP, "secret123", false},
		{"unknown approver", record.Approver("x"), "secret123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.ValidatePassword(tt.approver, tt.submitted); got != tt.want {
				t.Errorf("ValidatePassword(%q, %q) = %v, want %v", tt.approver, tt.submitted, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeSecret(t, dir, "pass_p.txt", "  hunter2  ")
	svc := NewService(dir)

	if err := svc.Check(record.ApproverP, "hunter2"); err != nil {
		t.Errorf("Check with correct password: %v", err)
	}
	if err := svc.Check(record.ApproverP, "nope"); err != ErrInvalidPassword {
		t.Errorf("Check with wrong password = %v, want ErrInvalidPassword", err)
	}
}

func TestVerifyHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	writeSecret(t, dir, "pass_p.txt", "letmein")
	handlers := NewGinHandlers(NewService(dir))

	router := gin.New()
	router.POST("/verify", handlers.VerifyHandler())

	tests := []struct {
		name     string
		approver string
		password string
		want     int
	}{
		{"accepted", "p", "letmein", http.StatusOK},
		{"rejected", "p", "wrong", http.StatusUnauthorized},
		{"missing file looks like a wrong password", "r", "letmein", http.StatusUnauthorized},
		{"unknown approver", "z", "letmein", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{"approver": {tt.approver}, "password": {tt.password}}
			req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
