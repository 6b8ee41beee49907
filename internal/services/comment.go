package services

import (
	"errors"
	"strings"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommentService struct {
	db         *gorm.DB
	permission *PermissionService
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db, permission: NewPermissionService(db)}
}

type CreateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1"`
}

func (s *CommentService) taskProject(taskID uuid.UUID) (uuid.UUID, error) {
	var task models.Task
	err := s.db.Select("id", "project_id").First(&task, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, response.NewNotFound("task not found")
		}
		return uuid.Nil, err
	}
	return task.ProjectID, nil
}

// Create adds a comment and a `commented` audit event in one transaction.
func (s *CommentService) Create(taskID, userID uuid.UUID, req *CreateCommentRequest) (*models.Comment, error) {
	projectID, err := s.taskProject(taskID)
	if err != nil {
		return nil, err
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(role) {
		return nil, response.NewPermissionDenied("permission denied")
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, response.NewInvalidState("comment content cannot be empty")
	}

	comment := models.Comment{TaskID: taskID, UserID: userID, Content: content}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		actor := userID
		event := models.TaskEvent{TaskID: taskID, UserID: &actor, Action: models.ActionCommented}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.db.Preload("User").First(&comment, "id = ?", comment.ID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// List returns a task's comments oldest first.
func (s *CommentService) List(taskID, userID uuid.UUID) ([]models.Comment, error) {
	projectID, err := s.taskProject(taskID)
	if err != nil {
		return nil, err
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("permission denied")
	}

	var comments []models.Comment
	if err := s.db.Where("task_id = ?", taskID).
		Preload("User").Order("created_at").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// Delete removes a comment. The author may always delete their own comment;
// a project owner may delete anyone's.
func (s *CommentService) Delete(commentID, userID uuid.UUID) error {
	var comment models.Comment
	err := s.db.First(&comment, "id = ?", commentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("comment not found")
		}
		return err
	}

	if comment.UserID != userID {
		projectID, err := s.taskProject(comment.TaskID)
		if err != nil {
			return err
		}
		role, err := s.permission.EffectiveRole(projectID, userID)
		if err != nil {
			return err
		}
		if !CanManage(role) {
			return response.NewPermissionDenied("only the author or an owner can delete a comment")
		}
	}

	return s.db.Delete(&models.Comment{}, "id = ?", commentID).Error
}
