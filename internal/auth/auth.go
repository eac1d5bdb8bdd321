package auth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/internal/record"
	"github.com/ksred/watchdog/pkg/response"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidPassword = errors.New("invalid password")
)

// DefaultSecretFiles maps each approver to the file holding their password
var DefaultSecretFiles = map[record.Approver]string{
	record.ApproverP: "pass_p.txt",
	record.ApproverR: "pass_r.txt",
}

// Credentials is the body of a password check request
type Credentials struct {
	Approver string `json:"approver" form:"approver"`
	Password string `json:"password" form:"password"`
}

// Service checks approver passwords against plain-text secret files.
// There is no hashing, rate limiting or lockout here.
type Service struct {
	secretFiles map[record.Approver]string
}

// NewService creates a gate whose secret files live in dir
func NewService(dir string) *Service {
	files := make(map[record.Approver]string, len(DefaultSecretFiles))
	for a, name := range DefaultSecretFiles {
		files[a] = filepath.Join(dir, name)
	}
	return &Service{secretFiles: files}
}

// ValidatePassword compares the submitted password with the approver's
// secret. The stored secret is trimmed, the submitted one is compared as
// sent. A missing file or unknown approver fails closed.
func (s *Service) ValidatePassword(approver record.Approver, submitted string) bool {
	path, ok := s.secretFiles[approver]
	if !ok {
		return false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("approver", string(approver)).Msg("failed to read approver secret")
		}
		return false
	}

	return submitted == strings.TrimSpace(string(content))
}

// Check is ValidatePassword as an error, for callers that propagate errors
func (s *Service) Check(approver record.Approver, submitted string) error {
	if !s.ValidatePassword(approver, submitted) {
		return ErrInvalidPassword
	}
	return nil
}

// GinHandlers contains HTTP handlers for password checks
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for password checks
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// VerifyHandler lets the dashboard check a password before it sends an
// approval, so an operator can be told early that they mistyped it.
func (h *GinHandlers) VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBind(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		approver, err := record.ParseApprover(creds.Approver)
		if err != nil {
			response.BadRequest(c, "Unknown approver")
			return
		}

		if !h.service.ValidatePassword(approver, creds.Password) {
			response.Unauthorized(c, "Invalid password for action "+approver.Label())
			return
		}

		response.OK(c, "Password accepted", nil)
	}
}
