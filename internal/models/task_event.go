package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskEventAction tags what kind of mutation produced an event.
type TaskEventAction string

const (
	ActionCreated       TaskEventAction = "created"
	ActionUpdated       TaskEventAction = "updated"
	ActionStatusChanged TaskEventAction = "status_changed"
	ActionAssigned      TaskEventAction = "assigned"
	ActionCommented     TaskEventAction = "commented"
	ActionDeleted       TaskEventAction = "deleted"
)

// FieldChange holds the before and after value of one changed field,
// stringified for the audit trail.
type FieldChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// TaskEvent is an append-only audit record. Exactly one row is written per
// mutating operation, in the same transaction as the mutation, and it is
// never updated afterwards. UserID is nullable so history survives the
// acting account's deletion.
type TaskEvent struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"task_id"`
	UserID    *uuid.UUID      `gorm:"type:uuid" json:"user_id"`
	User      *User           `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
	Action    TaskEventAction `gorm:"size:30;not null" json:"action"`
	Changes   *string         `gorm:"type:text" json:"-"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

func (TaskEvent) TableName() string { return "task_events" }

func (e *TaskEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// SetChanges serializes a field-change map into the Changes column.
func (e *TaskEvent) SetChanges(changes map[string]FieldChange) error {
	if len(changes) == 0 {
		e.Changes = nil
		return nil
	}
	b, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	s := string(b)
	e.Changes = &s
	return nil
}

// ChangeMap deserializes the Changes column, returning nil when the event
// carries no diff payload.
func (e *TaskEvent) ChangeMap() (map[string]FieldChange, error) {
	if e.Changes == nil {
		return nil, nil
	}
	var m map[string]FieldChange
	if err := json.Unmarshal([]byte(*e.Changes), &m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalJSON exposes the diff payload as a structured object.
func (e TaskEvent) MarshalJSON() ([]byte, error) {
	type alias TaskEvent
	changes, err := e.ChangeMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Changes map[string]FieldChange `json:"changes,omitempty"`
	}{alias(e), changes})
}
