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

type ProjectService struct {
	db         *gorm.DB
	permission *PermissionService
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db, permission: NewPermissionService(db)}
}

type CreateProjectRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=200"`
	Description *string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	WebhookURL  *string `json:"webhook_url"`
}

// ProjectSummary is the read model for a project: persisted fields plus the
// computed my_role and task_count.
type ProjectSummary struct {
	ID          uuid.UUID   `json:"id"`
	WorkspaceID uuid.UUID   `json:"workspace_id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	WebhookURL  *string     `json:"webhook_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	MyRole      models.Role `json:"my_role"`
	TaskCount   int64       `json:"task_count"`
}

func (s *ProjectService) summarize(p *models.Project, myRole models.Role, taskCount int64) *ProjectSummary {
	out := &ProjectSummary{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		MyRole:      myRole,
		TaskCount:   taskCount,
	}
	if myRole == models.RoleOwner {
		out.WebhookURL = p.WebhookURL
	}
	return out
}

func (s *ProjectService) taskCount(projectID uuid.UUID) int64 {
	var count int64
	s.db.Model(&models.Task{}).Where("project_id = ?", projectID).Count(&count)
	return count
}

// Create inserts the project and an owner membership for the creator in one
// transaction. The creator needs editor or above in the workspace.
func (s *ProjectService) Create(workspaceID, userID uuid.UUID, req *CreateProjectRequest) (*ProjectSummary, error) {
	var count int64
	s.db.Model(&models.Workspace{}).Where("id = ?", workspaceID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("workspace not found")
	}

	wsRole, err := s.permission.WorkspaceRole(workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(wsRole) {
		return nil, response.NewPermissionDenied("permission denied")
	}

	project := models.Project{
		WorkspaceID: workspaceID,
		Name:        req.Name,
		Description: req.Description,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		member := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      models.RoleOwner,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return s.summarize(&project, models.RoleOwner, 0), nil
}

// ListForWorkspace returns the workspace's projects with the caller's
// effective role and task count, computed at read time.
func (s *ProjectService) ListForWorkspace(workspaceID, userID uuid.UUID) ([]ProjectSummary, error) {
	var count int64
	s.db.Model(&models.Workspace{}).Where("id = ?", workspaceID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("workspace not found")
	}

	wsRole, err := s.permission.WorkspaceRole(workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if wsRole == "" {
		return nil, response.NewPermissionDenied("you are not a member of this workspace")
	}

	var projects []models.Project
	if err := s.db.Where("workspace_id = ?", workspaceID).
		Order("created_at").Find(&projects).Error; err != nil {
		return nil, err
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for i := range projects {
		role, err := s.permission.EffectiveRole(projects[i].ID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *s.summarize(&projects[i], role, s.taskCount(projects[i].ID)))
	}
	return summaries, nil
}

// Get returns one project. Existence is checked before permission.
func (s *ProjectService) Get(projectID, userID uuid.UUID) (*ProjectSummary, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("permission denied")
	}

	return s.summarize(&project, role, s.taskCount(projectID)), nil
}

// Update applies a partial update. Requires editor or above; the webhook URL
// is owner-only.
func (s *ProjectService) Update(projectID, userID uuid.UUID, req *UpdateProjectRequest) (*ProjectSummary, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(role) {
		return nil, response.NewPermissionDenied("permission denied")
	}
	if req.WebhookURL != nil && !CanManage(role) {
		return nil, response.NewPermissionDenied("only owner can change the webhook URL")
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = req.Description
	}
	if req.WebhookURL != nil {
		project.WebhookURL = req.WebhookURL
	}
	if err := s.db.Save(&project).Error; err != nil {
		return nil, err
	}

	return s.summarize(&project, role, s.taskCount(projectID)), nil
}

// Delete removes the project and everything under it, children first, in
// one transaction.
func (s *ProjectService) Delete(projectID, userID uuid.UUID) error {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return response.NewNotFound("project not found")
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return err
	}
	if !CanManage(role) {
		return response.NewPermissionDenied("only owner can delete a project")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteProjectTree(tx, projectID)
	})
}

// deleteProjectTree removes a project's dependents and then the project row
// itself. Must run inside a transaction.
func deleteProjectTree(tx *gorm.DB, projectID uuid.UUID) error {
	var taskIDs []uuid.UUID
	if err := tx.Model(&models.Task{}).
		Where("project_id = ?", projectID).Pluck("id", &taskIDs).Error; err != nil {
		return err
	}
	if len(taskIDs) > 0 {
		if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ShareLink{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Project{}, "id = ?", projectID).Error
}

// ListMembers returns the project roster. Any member (direct or via
// workspace) may view it.
func (s *ProjectService) ListMembers(projectID, userID uuid.UUID) ([]MemberInfo, error) {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("permission denied")
	}

	var members []models.ProjectMember
	if err := s.db.Where("project_id = ?", projectID).
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

// AddMember resolves an email to an account and upserts a project
// membership, overriding that user's workspace role for this project only.
func (s *ProjectService) AddMember(projectID, actorID uuid.UUID, req *InviteMemberRequest) (*MemberInfo, error) {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	actorRole, err := s.permission.EffectiveRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !CanManage(actorRole) {
		return nil, response.NewPermissionDenied("only owner can manage project members")
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

	var member models.ProjectMember
	err = s.db.Where("project_id = ? AND user_id = ?", projectID, user.ID).First(&member).Error
	switch {
	case err == nil:
		member.Role = req.Role
		if err := s.db.Save(&member).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		member = models.ProjectMember{ProjectID: projectID, UserID: user.ID, Role: req.Role}
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

// UpdateMemberRole overwrites an existing project member's role.
func (s *ProjectService) UpdateMemberRole(projectID, actorID, targetUserID uuid.UUID, role models.Role) (*MemberInfo, error) {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	actorRole, err := s.permission.EffectiveRole(projectID, actorID)
	if err != nil {
		return nil, err
	}
	if !CanManage(actorRole) {
		return nil, response.NewPermissionDenied("only owner can manage project members")
	}

	if !role.Valid() {
		return nil, response.NewInvalidState("invalid role, must be 'viewer', 'editor', or 'owner'")
	}

	var member models.ProjectMember
	if err := s.db.Where("project_id = ? AND user_id = ?", projectID, targetUserID).
		Preload("User").First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project member not found")
		}
		return nil, err
	}

	member.Role = role
	if err := s.db.Save(&member).Error; err != nil {
		return nil, err
	}

	info := MemberInfo{UserID: member.UserID, Role: member.Role, CreatedAt: member.CreatedAt}
	if member.User != nil {
		info.Email = member.User.Email
		info.Name = member.User.Name
	}
	return &info, nil
}

// RemoveMember deletes a project membership. Self-removal is rejected.
func (s *ProjectService) RemoveMember(projectID, actorID, targetUserID uuid.UUID) error {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return response.NewNotFound("project not found")
	}

	actorRole, err := s.permission.EffectiveRole(projectID, actorID)
	if err != nil {
		return err
	}
	if !CanManage(actorRole) {
		return response.NewPermissionDenied("only owner can manage project members")
	}

	if targetUserID == actorID {
		return response.NewInvalidState("cannot remove yourself from the project")
	}

	result := s.db.Where("project_id = ? AND user_id = ?", projectID, targetUserID).
		Delete(&models.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("project member not found")
	}
	return nil
}
