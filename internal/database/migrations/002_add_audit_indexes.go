package migrations

import (
	"gorm.io/gorm"
)

// AddAuditIndexes adds the indexes used by the journal listing
func AddAuditIndexes(db *gorm.DB) error {
	indexes := []string{
		// Newest first listing
		`CREATE INDEX IF NOT EXISTS idx_events_created_at
		 ON events(created_at)`,

		// Filter by action
		`CREATE INDEX IF NOT EXISTS idx_events_action_created_at
		 ON events(action, created_at)`,

		// Per queue history
		`CREATE INDEX IF NOT EXISTS idx_events_queue
		 ON events(queue)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
