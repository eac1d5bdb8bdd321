package migrations

import (
	"github.com/ksred/watchdog/internal/audit"
	"gorm.io/gorm"
)

// AddAuditEvents creates the journal of dashboard actions
func AddAuditEvents(db *gorm.DB) error {
	return db.AutoMigrate(&audit.Event{})
}
