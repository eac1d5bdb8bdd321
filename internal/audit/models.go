package audit

import (
	"time"

	"gorm.io/gorm"
)

// Event is one dashboard action as recorded in the journal
type Event struct {
	gorm.Model `json:"-"`
	EventID    string    `gorm:"uniqueIndex" json:"event_id"`
	Action     string    `json:"action"`
	Queue      string    `json:"queue"`
	Row        int       `json:"row,omitempty"`
	Approver   string    `json:"approver,omitempty"`
	Line       string    `json:"line"`
	Promoted   bool      `json:"promoted"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
