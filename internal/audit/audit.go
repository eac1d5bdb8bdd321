// Package audit keeps a journal of every dashboard action in sqlite. The
// queue files stay the source of truth; a journal write that fails is
// logged and the action still stands.
package audit

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/watchdog/internal/approval"
	"github.com/ksred/watchdog/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Journal records approval outcomes
type Journal struct {
	db  *Database
	now func() time.Time
}

func NewJournal(db *gorm.DB) *Journal {
	return &Journal{
		db:  NewDatabase(db),
		now: time.Now,
	}
}

// Observe implements approval.Observer
func (j *Journal) Observe(o approval.Outcome) {
	event := &Event{
		EventID:   uuid.New().String(),
		Action:    string(o.Action),
		Queue:     string(o.Queue),
		Row:       o.Row,
		Approver:  string(o.Approver),
		Line:      o.Line,
		Promoted:  o.Promoted,
		Success:   o.Success,
		Message:   o.Message,
		CreatedAt: j.now(),
	}

	if err := j.db.CreateEvent(event); err != nil {
		log.Error().
			Err(err).
			Str("component", "audit").
			Str("action", event.Action).
			Msg("failed to record audit event")
	}
}

// Recent returns the newest events first. limit is clamped to
// [1, MaxLimit] and defaults to DefaultLimit.
func (j *Journal) Recent(action string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return j.db.GetRecentEvents(action, limit)
}

// GinHandlers contains HTTP handlers for the audit journal
type GinHandlers struct {
	journal *Journal
}

// NewGinHandlers creates a new set of HTTP handlers for audit endpoints
func NewGinHandlers(journal *Journal) *GinHandlers {
	return &GinHandlers{
		journal: journal,
	}
}

// RecentHandler handles GET requests for the latest journal entries.
// Query parameters: limit, action
func (h *GinHandlers) RecentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				response.BadRequest(c, "limit must be a number")
				return
			}
			limit = n
		}

		events, err := h.journal.Recent(c.Query("action"), limit)
		if err != nil {
			log.Error().Err(err).Msg("failed to read audit journal")
			response.InternalError(c, "Failed to read audit journal")
			return
		}
		response.Success(c, gin.H{"events": events, "count": len(events)})
	}
}
