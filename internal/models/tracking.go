package models

import "time"

// Tracking carries the audit metadata stored on every domain record.
type Tracking struct {
	CreatedDate     time.Time  `db:"created_date" json:"created_date"`
	CreatedBy       string     `db:"created_by" json:"created_by"`
	LastUpdatedDate *time.Time `db:"last_updated_date" json:"last_updated_date,omitempty"`
	LastUpdatedBy   *string    `db:"last_updated_by" json:"last_updated_by,omitempty"`
	DeletedDate     *time.Time `db:"deleted_date" json:"deleted_date,omitempty"`
	DeletedBy       *string    `db:"deleted_by" json:"deleted_by,omitempty"`
}

// StampCreated initialises the creation metadata.
func (t *Tracking) StampCreated(by string, at time.Time) {
	t.CreatedDate = at
	t.CreatedBy = by
}

// StampUpdated records the most recent modification.
func (t *Tracking) StampUpdated(by string, at time.Time) {
	t.LastUpdatedDate = &at
	t.LastUpdatedBy = &by
}

// StampDeleted records a soft delete.
func (t *Tracking) StampDeleted(by string, at time.Time) {
	t.DeletedDate = &at
	t.DeletedBy = &by
}
