package services

import (
	"errors"
	"strings"
	"time"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkspaceService struct {
	db         *gorm.DB
	permission *PermissionService
}

func NewWorkspaceService(db *gorm.DB) *WorkspaceService {
	return &WorkspaceService{db: db, permission: NewPermissionService(db)}
}

type CreateWorkspaceRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200"`
	Slug        string  `json:"slug" binding:"required,min=2,max=100"`
	Description *string `json:"description"`
}

type UpdateWorkspaceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	WebhookURL  *string `json:"webhook_url"`
}

type InviteMemberRequest struct {
	Email string      `json:"email" binding:"required,email"`
	Role  models.Role `json:"role" binding:"required"`
}

type UpdateMemberRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// WorkspaceSummary is the read model for a workspace: persisted fields plus
// the computed my_role and member_count.
type WorkspaceSummary struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Slug        string      `json:"slug"`
	Description *string     `json:"description"`
	WebhookURL  *string     `json:"webhook_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	MyRole      models.Role `json:"my_role"`
	MemberCount int64       `json:"member_count"`
}

func (s *WorkspaceService) summarize(ws *models.Workspace, myRole models.Role, memberCount int64) *WorkspaceSummary {
	out := &WorkspaceSummary{
		ID:          ws.ID,
		Name:        ws.Name,
		Slug:        ws.Slug,
		Description: ws.Description,
		CreatedAt:   ws.CreatedAt,
		UpdatedAt:   ws.UpdatedAt,
		MyRole:      myRole,
		MemberCount: memberCount,
	}
	// The notification endpoint is owner-only information.
	if myRole == models.RoleOwner {
		out.WebhookURL = ws.WebhookURL
	}
	return out
}

// Create inserts the workspace and an owner membership for the creator in
// one transaction.
func (s *WorkspaceService) Create(userID uuid.UUID, req *CreateWorkspaceRequest) (*WorkspaceSummary, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))

	var count int64
	s.db.Model(&models.Workspace{}).Where("slug = ?", slug).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("workspace slug already in use")
	}

	ws := models.Workspace{
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		member := models.WorkspaceMember{
			WorkspaceID: ws.ID,
			UserID:      userID,
			Role:        models.RoleOwner,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return s.summarize(&ws, models.RoleOwner, 1), nil
}

// ListForUser returns every workspace the user belongs to, with the user's
// own role and the member count computed at read time.
func (s *WorkspaceService) ListForUser(userID uuid.UUID) ([]WorkspaceSummary, error) {
	var memberships []models.WorkspaceMember
	if err := s.db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}

	summaries := make([]WorkspaceSummary, 0, len(memberships))
	for _, m := range memberships {
		var ws models.Workspace
		if err := s.db.First(&ws, "id = ?", m.WorkspaceID).Error; err != nil {
			return nil, err
		}
		var memberCount int64
		if err := s.db.Model(&models.WorkspaceMember{}).
			Where("workspace_id = ?", ws.ID).Count(&memberCount).Error; err != nil {
			return nil, err
		}
		summaries = append(summaries, *s.summarize(&ws, m.Role, memberCount))
	}
	return summaries, nil
}

// Get returns one workspace. Existence is checked before membership.
func (s *WorkspaceService) Get(workspaceID, userID uuid.UUID) (*WorkspaceSummary, error) {
	var ws models.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("workspace not found")
		}
		return nil, err
	}

	role, err := s.permission.WorkspaceRole(workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("you are not a member of this workspace")
	}

	var memberCount int64
	if err := s.db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ?", workspaceID).Count(&memberCount).Error; err != nil {
		return nil, err
	}
	return s.summarize(&ws, role, memberCount), nil
}

// Update applies a partial update. Requires editor or above.
func (s *WorkspaceService) Update(workspaceID, userID uuid.UUID, req *UpdateWorkspaceRequest) (*WorkspaceSummary, error) {
	var ws models.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("workspace not found")
		}
		return nil, err
	}

	role, err := s.permission.WorkspaceRole(workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(role) {
		return nil, response.NewPermissionDenied("permission denied")
	}
	// Only owners may change the notification endpoint.
	if req.WebhookURL != nil && !CanManage(role) {
		return nil, response.NewPermissionDenied("only owner can change the webhook URL")
	}

	if req.Name != nil {
		ws.Name = *req.Name
	}
	if req.Description != nil {
		ws.Description = req.Description
	}
	if req.WebhookURL != nil {
		ws.WebhookURL = req.WebhookURL
	}
	if err := s.db.Save(&ws).Error; err != nil {
		return nil, err
	}

	var memberCount int64
	s.db.Model(&models.WorkspaceMember{}).Where("workspace_id = ?", workspaceID).Count(&memberCount)
	return s.summarize(&ws, role, memberCount), nil
}

// Delete removes the workspace and all dependent rows in one transaction,
// children before parent so no orphans remain even without FK cascade
// support.
func (s *WorkspaceService) Delete(workspaceID, userID uuid.UUID) error {
	var ws models.Workspace
	if err := s.db.First(&ws, "id = ?", workspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("workspace not found")
		}
		return err
	}

	role, err := s.permission.WorkspaceRole(workspaceID, userID)
	if err != nil {
		return err
	}
	if !CanManage(role) {
		return response.NewPermissionDenied("only owner can delete a workspace")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var projectIDs []uuid.UUID
		if err := tx.Model(&models.Project{}).
			Where("workspace_id = ?", workspaceID).Pluck("id", &projectIDs).Error; err != nil {
			return err
		}
		for _, pid := range projectIDs {
			if err := deleteProjectTree(tx, pid); err != nil {
				return err
			}
		}
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Workspace{}, "id = ?", workspaceID).Error
	})
}

// MemberInfo is the read model for one membership row.
type MemberInfo struct {
	UserID    uuid.UUID   `json:"user_id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// ListMembers returns the workspace roster. Any member may view it.
func (s *WorkspaceService) ListMembers(workspaceID, userID uuid.UUID) ([]MemberInfo, error) {
	var count int64
	s.db.Model(&models.Workspace{}).Where("id = ?", workspaceID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("workspace not found")
	}

	role, err := s.permission.WorkspaceRole(workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("you are not a member of this workspace")
	}

	var members []models.WorkspaceMember
	if err := s.db.Where("workspace_id = ?", workspaceID).
		Preload("User").Order("created_at").Find(&members).Error; err != nil {
		return nil, err
	}

	infos := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		info := MemberInfo{UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt}
		if m.User != nil {
			info.Email = m.User.Email
			info.Name = m.User.Name
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// InviteMember resolves an email to an account and upserts a membership:
// an existing row gets its role overwritten, never duplicated.
func (s *WorkspaceService) InviteMember(workspaceID, actorID uuid.UUID, req *InviteMemberRequest) (*MemberInfo, error) {
	var count int64
	s.db.Model(&models.Workspace{}).Where("id = ?", workspaceID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("workspace not found")
	}

	actorRole, err := s.permission.WorkspaceRole(workspaceID, actorID)
	if err != nil {
		return nil, err
	}
	if !CanManage(actorRole) {
		return nil, response.NewPermissionDenied("only owner can manage workspace members")
	}

	if !req.Role.Valid() {
		return nil, response.NewInvalidState("invalid role, must be 'viewer', 'editor', or 'owner'")
	}

	var user models.User
	if err := s.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}

	var member models.WorkspaceMember
	err = s.db.Where("workspace_id = ? AND user_id = ?", workspaceID, user.ID).First(&member).Error
	switch {
	case err == nil:
		member.Role = req.Role
		if err := s.db.Save(&member).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		member = models.WorkspaceMember{WorkspaceID: workspaceID, UserID: user.ID, Role: req.Role}
		if err := s.db.Create(&member).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &MemberInfo{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      member.Role,
		CreatedAt: member.CreatedAt,
	}, nil
}

// RemoveMember deletes a membership. Removing one's own membership is
// rejected so a workspace cannot lock itself out.
func (s *WorkspaceService) RemoveMember(workspaceID, actorID, targetUserID uuid.UUID) error {
	var count int64
	s.db.Model(&models.Workspace{}).Where("id = ?", workspaceID).Count(&count)
	if count == 0 {
		return response.NewNotFound("workspace not found")
	}

	actorRole, err := s.permission.WorkspaceRole(workspaceID, actorID)
	if err != nil {
		return err
	}
	if !CanManage(actorRole) {
		return response.NewPermissionDenied("only owner can manage workspace members")
	}

	if targetUserID == actorID {
		return response.NewInvalidState("cannot remove yourself from the workspace")
	}

	result := s.db.Where("workspace_id = ? AND user_id = ?", workspaceID, targetUserID).
		Delete(&models.WorkspaceMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("workspace member not found")
	}
	return nil
}
