package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// shareLinkTTL is how long a freshly minted link stays valid.
const shareLinkTTL = 30 * 24 * time.Hour

type ShareLinkService struct {
	db         *gorm.DB
	permission *PermissionService
}

func NewShareLinkService(db *gorm.DB) *ShareLinkService {
	return &ShareLinkService{db: db, permission: NewPermissionService(db)}
}

type CreateShareLinkRequest struct {
	Scope models.ShareLinkScope `json:"scope"`
}

// SharedProject is the anonymous read model a valid token resolves to.
type SharedProject struct {
	ProjectID   uuid.UUID             `json:"project_id"`
	ProjectName string                `json:"project_name"`
	Description *string               `json:"description"`
	Scope       models.ShareLinkScope `json:"scope"`
	ExpiresAt   time.Time             `json:"expires_at"`
	Tasks       []TaskView            `json:"tasks"`
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create mints a new token for a project. Owner only.
func (s *ShareLinkService) Create(projectID, userID uuid.UUID, req *CreateShareLinkRequest) (*models.ShareLink, error) {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanManage(role) {
		return nil, response.NewPermissionDenied("only owner can create share links")
	}

	scope := req.Scope
	if scope == "" {
		scope = models.ScopeProjectRead
	}
	if !scope.Valid() {
		return nil, response.NewInvalidState("invalid share link scope")
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	creator := userID
	link := models.ShareLink{
		ProjectID: projectID,
		CreatedBy: &creator,
		Token:     token,
		Scope:     scope,
		IsActive:  true,
		ExpiresAt: time.Now().UTC().Add(shareLinkTTL),
	}
	if err := s.db.Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// List returns a project's links, newest first. Owner only: tokens are
// credentials.
func (s *ShareLinkService) List(projectID, userID uuid.UUID) ([]models.ShareLink, error) {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanManage(role) {
		return nil, response.NewPermissionDenied("only owner can list share links")
	}

	var links []models.ShareLink
	if err := s.db.Where("project_id = ?", projectID).
		Order("created_at desc").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (s *ShareLinkService) loadManaged(linkID, userID uuid.UUID) (*models.ShareLink, error) {
	var link models.ShareLink
	err := s.db.First(&link, "id = ?", linkID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("share link not found")
		}
		return nil, err
	}

	role, err := s.permission.EffectiveRole(link.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanManage(role) {
		return nil, response.NewPermissionDenied("only owner can manage share links")
	}
	return &link, nil
}

// SetActive toggles a link without deleting it; a deactivated token stops
// resolving immediately but can be re-enabled later.
func (s *ShareLinkService) SetActive(linkID, userID uuid.UUID, active bool) (*models.ShareLink, error) {
	link, err := s.loadManaged(linkID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(link).Update("is_active", active).Error; err != nil {
		return nil, err
	}
	link.IsActive = active
	return link, nil
}

// Revoke deactivates a link. Kept as the common path for callers that never
// re-enable.
func (s *ShareLinkService) Revoke(linkID, userID uuid.UUID) error {
	_, err := s.SetActive(linkID, userID, false)
	return err
}

// Delete removes a link permanently.
func (s *ShareLinkService) Delete(linkID, userID uuid.UUID) error {
	link, err := s.loadManaged(linkID, userID)
	if err != nil {
		return err
	}
	return s.db.Delete(link).Error
}

// Resolve turns a token into the shared project view. Inactive, expired and
// unknown tokens are indistinguishable to the caller.
func (s *ShareLinkService) Resolve(token string) (*SharedProject, error) {
	var link models.ShareLink
	err := s.db.First(&link, "token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("share link not found")
		}
		return nil, err
	}
	if !link.IsActive || time.Now().UTC().After(link.ExpiresAt) {
		return nil, response.NewNotFound("share link not found")
	}

	var project models.Project
	if err := s.db.First(&project, "id = ?", link.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("share link not found")
		}
		return nil, err
	}

	shared := &SharedProject{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Description: project.Description,
		Scope:       link.Scope,
		ExpiresAt:   link.ExpiresAt,
	}

	var tasks []models.Task
	if err := s.db.Preload("Assignee").
		Where("project_id = ?", project.ID).
		Order("created_at").Find(&tasks).Error; err != nil {
		return nil, err
	}
	shared.Tasks = make([]TaskView, 0, len(tasks))
	for i := range tasks {
		shared.Tasks = append(shared.Tasks, *taskView(&tasks[i]))
	}
	return shared, nil
}
