package services

import (
	"errors"

	"github.com/forps/taskboard/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CanEdit reports whether a role may create or modify content.
// An absent role ("") satisfies neither capability.
func CanEdit(role models.Role) bool {
	return role == models.RoleEditor || role == models.RoleOwner
}

// CanManage reports whether a role may manage members, delete entities and
// administer share links.
func CanManage(role models.Role) bool {
	return role == models.RoleOwner
}

// PermissionService resolves a user's effective role on a project.
type PermissionService struct {
	db *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{db: db}
}

// EffectiveRole returns the role governing the user's access to the project.
//
// A project-level membership always wins, even when it grants a lower role
// than the workspace membership would; only when no project membership
// exists does the workspace membership apply. Returns "" when neither
// exists. Reads fresh on every call so revocations take effect immediately.
func (s *PermissionService) EffectiveRole(projectID, userID uuid.UUID) (models.Role, error) {
	var pm models.ProjectMember
	err := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).First(&pm).Error
	if err == nil {
		return pm.Role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var project models.Project
	if err := s.db.Select("workspace_id").First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	var wm models.WorkspaceMember
	err = s.db.Where("workspace_id = ? AND user_id = ?", project.WorkspaceID, userID).First(&wm).Error
	if err == nil {
		return wm.Role, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return "", err
}

// WorkspaceRole returns the user's role in a workspace, "" when not a member.
func (s *PermissionService) WorkspaceRole(workspaceID, userID uuid.UUID) (models.Role, error) {
	var wm models.WorkspaceMember
	err := s.db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).First(&wm).Error
	if err == nil {
		return wm.Role, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	return "", err
}
