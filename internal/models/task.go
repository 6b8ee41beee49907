package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskStatus is the task board column. Any status may follow any other;
// transition legality is deliberately not enforced.
type TaskStatus string

const (
	StatusTodo    TaskStatus = "todo"
	StatusDoing   TaskStatus = "doing"
	StatusDone    TaskStatus = "done"
	StatusBlocked TaskStatus = "blocked"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone, StatusBlocked:
		return true
	}
	return false
}

// Task belongs to exactly one project. Assignee and reporter references are
// cleared (not cascaded) when the user is deleted; tasks outlive the
// accounts that touched them.
type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"project_id"`
	Title       string     `gorm:"size:500;not null" json:"title"`
	Description *string    `gorm:"type:text" json:"description"`
	Status      TaskStatus `gorm:"size:20;not null;default:todo" json:"status"`
	AssigneeID  *uuid.UUID `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee    *User      `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	ReporterID  *uuid.UUID `gorm:"type:uuid" json:"reporter_id"`
	Reporter    *User      `gorm:"foreignKey:ReporterID;constraint:OnDelete:SET NULL" json:"reporter,omitempty"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// TaskEvent is deliberately not modeled as an association here: the
	// `deleted` audit event must survive its task row, so task_events has
	// no enforced FK back to tasks.
	Comments []Comment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Task) TableName() string { return "tasks" }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	return nil
}

// Comment is free-text discussion on a task.
type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID `gorm:"type:uuid;index;not null" json:"task_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
