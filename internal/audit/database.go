package audit

import (
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateEvent(event *Event) error {
	return d.db.Create(event).Error
}

func (d *Database) GetEvent(eventID string) (*Event, error) {
	var event Event
	if err := d.db.Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// GetRecentEvents returns up to limit events, newest first. An empty
// action matches every action.
func (d *Database) GetRecentEvents(action string, limit int) ([]Event, error) {
	var events []Event
	query := d.db.Order("created_at DESC").Order("id DESC").Limit(limit)
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
