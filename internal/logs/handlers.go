package logs

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/watchdog/pkg/response"
	"github.com/rs/zerolog/log"
)

// GinHandlers contains HTTP handlers for the log viewer
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for log endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// ListHandler handles GET requests listing the available log files
func (h *GinHandlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		files, err := h.service.List()
		if err != nil {
			log.Error().Err(err).Msg("failed to list log files")
			response.InternalError(c, "Failed to list log files")
			return
		}
		response.Success(c, gin.H{"files": files, "count": len(files)})
	}
}

// ReadHandler handles GET requests for the tail of one log file.
// Query parameters: file (DIR:name.log), lines (0 for the whole file)
func (h *GinHandlers) ReadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Query("file")
		if id == "" {
			response.BadRequest(c, "Log file parameter required")
			return
		}

		lines := 0
		if v := c.Query("lines"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				response.BadRequest(c, "lines must be a non-negative number")
				return
			}
			lines = n
		}

		content, err := h.service.Read(id, lines)
		switch {
		case err == nil:
			response.Success(c, content)
		case errors.Is(err, ErrInvalidFileName):
			response.BadRequest(c, "Invalid log file name")
		case errors.Is(err, ErrInvalidDirectory):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "Log file not found: "+id)
		default:
			log.Error().Err(err).Str("file", id).Msg("failed to read log file")
			response.InternalError(c, "Cannot read log file: "+id)
		}
	}
}
