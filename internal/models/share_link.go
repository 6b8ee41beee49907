package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShareLinkScope limits what an anonymous holder of the token may read.
type ShareLinkScope string

const (
	ScopeProjectRead ShareLinkScope = "project_read"
	ScopeTaskRead    ShareLinkScope = "task_read"
)

func (s ShareLinkScope) Valid() bool {
	return s == ScopeProjectRead || s == ScopeTaskRead
}

// ShareLink grants anonymous, read-only, time-boxed access to a project via
// an opaque token. The token is the only public credential in the system.
type ShareLink struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;index;not null" json:"project_id"`
	CreatedBy *uuid.UUID     `gorm:"type:uuid" json:"created_by"`
	Token     string         `gorm:"uniqueIndex;size:100;not null" json:"token"`
	Scope     ShareLinkScope `gorm:"size:20;not null;default:project_read" json:"scope"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt time.Time      `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}

func (ShareLink) TableName() string { return "share_links" }

func (l *ShareLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
