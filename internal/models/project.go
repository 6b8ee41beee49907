package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a unit of work inside a workspace.
type Project struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;index;not null" json:"workspace_id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description *string   `gorm:"size:1000" json:"description"`
	// WebhookURL is the canonical notification endpoint for this project's
	// weekly digest. Falls back to the workspace URL when nil.
	WebhookURL *string   `gorm:"size:500" json:"webhook_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Members    []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks      []Task          `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	ShareLinks []ShareLink     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProjectMember ties one user to one project with one role, overriding that
// user's workspace role for this project only.
type ProjectMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_project_user;not null" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role      Role      `gorm:"size:20;not null;default:viewer" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
