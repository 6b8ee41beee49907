package services

import (
	"errors"
	"time"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskService implements the task mutation pipeline: every create, update
// and delete writes the entity change and exactly one audit event in a
// single transaction.
type TaskService struct {
	db         *gorm.DB
	permission *PermissionService
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db, permission: NewPermissionService(db)}
}

type CreateTaskRequest struct {
	Title       string            `json:"title" binding:"required,min=1,max=500"`
	Description *string           `json:"description"`
	Status      models.TaskStatus `json:"status"`
	AssigneeID  *uuid.UUID        `json:"assignee_id"`
	DueDate     *time.Time        `json:"due_date"`
}

// UpdateTaskRequest is a partial payload: nil means "leave unchanged".
// An AssigneeID of uuid.Nil unassigns the task.
type UpdateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *models.TaskStatus `json:"status"`
	AssigneeID  *uuid.UUID         `json:"assignee_id"`
	DueDate     *time.Time         `json:"due_date"`
}

type TaskFilters struct {
	Status     *models.TaskStatus `form:"status"`
	AssigneeID *uuid.UUID         `form:"assignee_id"`
	MineOnly   bool               `form:"mine_only"`
}

// TaskView is the read model for a task: persisted fields plus resolved
// assignee/reporter names.
type TaskView struct {
	ID           uuid.UUID         `json:"id"`
	ProjectID    uuid.UUID         `json:"project_id"`
	Title        string            `json:"title"`
	Description  *string           `json:"description"`
	Status       models.TaskStatus `json:"status"`
	AssigneeID   *uuid.UUID        `json:"assignee_id"`
	AssigneeName *string           `json:"assignee_name,omitempty"`
	ReporterID   *uuid.UUID        `json:"reporter_id"`
	ReporterName *string           `json:"reporter_name,omitempty"`
	DueDate      *time.Time        `json:"due_date"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func taskView(t *models.Task) *TaskView {
	v := &TaskView{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		AssigneeID:  t.AssigneeID,
		ReporterID:  t.ReporterID,
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Assignee != nil {
		v.AssigneeName = &t.Assignee.Name
	}
	if t.Reporter != nil {
		v.ReporterName = &t.Reporter.Name
	}
	return v
}

func (s *TaskService) loadTask(taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := s.db.Preload("Assignee").Preload("Reporter").First(&task, "id = ?", taskID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("task not found")
		}
		return nil, err
	}
	return &task, nil
}

// Create persists a new task and its `created` audit event atomically.
// When no assignee is supplied the task is assigned to the acting user;
// the reporter is always the acting user.
func (s *TaskService) Create(projectID, userID uuid.UUID, req *CreateTaskRequest) (*TaskView, error) {
	var count int64
	s.db.Model(&models.Project{}).Where("id = ?", projectID).Count(&count)
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}

	role, err := s.permission.EffectiveRole(projectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(role) {
		return nil, response.NewPermissionDenied("permission denied")
	}

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	}
	if !status.Valid() {
		return nil, response.NewInvalidState("invalid task status")
	}

	assigneeID := req.AssigneeID
	if assigneeID == nil {
		// Self-assignment default: unassigned tasks go to their creator.
		uid := userID
		assigneeID = &uid
	}

	reporterID := userID
	task := models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		AssigneeID:  assigneeID,
		ReporterID:  &reporterID,
		DueDate:     req.DueDate,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		actor := userID
		event := models.TaskEvent{TaskID: task.ID, UserID: &actor, Action: models.ActionCreated}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(task.ID, userID)
}

// Get returns a single task. Existence is checked before permission.
func (s *TaskService) Get(taskID, userID uuid.UUID) (*TaskView, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	role, err := s.permission.EffectiveRole(task.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("permission denied")
	}

	return taskView(task), nil
}

// Update applies a partial payload. Each supplied field is diffed against
// the current value in memory; when at least one field actually changed,
// exactly one audit event is written in the same transaction as the task
// save (`status_changed` if status was among the changes, else `updated`).
// A payload equal to the current state writes nothing.
func (s *TaskService) Update(taskID, userID uuid.UUID, req *UpdateTaskRequest) (*TaskView, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	role, err := s.permission.EffectiveRole(task.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(role) {
		return nil, response.NewPermissionDenied("permission denied")
	}

	changes := map[string]models.FieldChange{}

	if req.Title != nil && *req.Title != task.Title {
		changes["title"] = models.FieldChange{Old: task.Title, New: *req.Title}
		task.Title = *req.Title
	}
	if req.Description != nil {
		old := strPtrValue(task.Description)
		if *req.Description != old {
			changes["description"] = models.FieldChange{Old: old, New: *req.Description}
			task.Description = req.Description
		}
	}
	if req.Status != nil && *req.Status != task.Status {
		if !req.Status.Valid() {
			return nil, response.NewInvalidState("invalid task status")
		}
		changes["status"] = models.FieldChange{Old: string(task.Status), New: string(*req.Status)}
		task.Status = *req.Status
	}
	if req.AssigneeID != nil {
		old := uuidPtrValue(task.AssigneeID)
		var newID *uuid.UUID
		newVal := ""
		if *req.AssigneeID != uuid.Nil {
			id := *req.AssigneeID
			newID = &id
			newVal = id.String()
		}
		if newVal != old {
			changes["assignee_id"] = models.FieldChange{Old: old, New: newVal}
			task.AssigneeID = newID
			task.Assignee = nil
		}
	}
	if req.DueDate != nil {
		old := dateValue(task.DueDate)
		if dateValue(req.DueDate) != old {
			changes["due_date"] = models.FieldChange{Old: old, New: dateValue(req.DueDate)}
			task.DueDate = req.DueDate
		}
	}

	// Idempotence: identical payloads must not leave an audit trace.
	if len(changes) == 0 {
		return taskView(task), nil
	}

	action := models.ActionUpdated
	if _, ok := changes["status"]; ok {
		action = models.ActionStatusChanged
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		actor := userID
		event := models.TaskEvent{TaskID: task.ID, UserID: &actor, Action: action}
		if err := event.SetChanges(changes); err != nil {
			return err
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(taskID, userID)
}

// Delete appends a `deleted` audit event and then removes the task row, in
// one transaction. The event intentionally outlives the task as historical
// evidence; earlier events for the task are also kept.
func (s *TaskService) Delete(taskID, userID uuid.UUID) error {
	task, err := s.loadTask(taskID)
	if err != nil {
		return err
	}

	role, err := s.permission.EffectiveRole(task.ProjectID, userID)
	if err != nil {
		return err
	}
	if !CanManage(role) {
		return response.NewPermissionDenied("only owner can delete tasks")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		actor := userID
		event := models.TaskEvent{TaskID: task.ID, UserID: &actor, Action: models.ActionDeleted}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, "id = ?", task.ID).Error
	})
}

// ListForProject returns the project's tasks. Filters are independent and
// combine with AND.
func (s *TaskService) ListForProject(projectID, userID uuid.UUID, filters *TaskFilters) ([]TaskView, error) {
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

	query := s.db.Preload("Assignee").Preload("Reporter").
		Where("project_id = ?", projectID)
	if filters != nil {
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.AssigneeID != nil {
			query = query.Where("assignee_id = ?", *filters.AssigneeID)
		}
		if filters.MineOnly {
			query = query.Where("assignee_id = ?", userID)
		}
	}

	var tasks []models.Task
	if err := query.Order("created_at").Find(&tasks).Error; err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, *taskView(&tasks[i]))
	}
	return views, nil
}

// WeekTasks returns the user's assigned tasks for one week: due date in
// [weekStart, weekStart+7d), plus every undated task, which surfaces in
// all week views.
func (s *TaskService) WeekTasks(userID uuid.UUID, weekStart time.Time) ([]TaskView, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)

	var tasks []models.Task
	err := s.db.Preload("Assignee").Preload("Reporter").
		Where("assignee_id = ?", userID).
		Where("due_date IS NULL OR (due_date >= ? AND due_date < ?)", weekStart, weekEnd).
		Order("due_date").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, *taskView(&tasks[i]))
	}
	return views, nil
}

// ListEvents returns a task's audit trail in insertion order.
func (s *TaskService) ListEvents(taskID, userID uuid.UUID) ([]models.TaskEvent, error) {
	task, err := s.loadTask(taskID)
	if err != nil {
		return nil, err
	}

	role, err := s.permission.EffectiveRole(task.ProjectID, userID)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, response.NewPermissionDenied("permission denied")
	}

	var events []models.TaskEvent
	if err := s.db.Where("task_id = ?", taskID).
		Preload("User").Order("created_at").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// --- string forms used for diffing and the audit payload ---

func strPtrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func uuidPtrValue(p *uuid.UUID) string {
	if p == nil {
		return ""
	}
	return p.String()
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
