package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace is the tenant boundary. Deleting a workspace cascades to its
// projects and memberships.
type Workspace struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Description *string   `gorm:"size:1000" json:"description"`
	// WebhookURL is a fallback notification endpoint; the project-level URL
	// is canonical and wins when set.
	WebhookURL *string   `gorm:"size:500" json:"webhook_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Workspace) TableName() string { return "workspaces" }

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// WorkspaceMember ties one user to one workspace with one role.
type WorkspaceMember struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_workspace_user;not null" json:"workspace_id"`
	UserID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_workspace_user;not null" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role        Role      `gorm:"size:20;not null;default:viewer" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WorkspaceMember) TableName() string { return "workspace_members" }

func (m *WorkspaceMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
