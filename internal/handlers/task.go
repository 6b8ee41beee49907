package handlers

import (
	"time"

	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{
		taskService: services.NewTaskService(db),
	}
}

// ListForProject returns a project's tasks, optionally filtered
// GET /api/projects/:id/tasks?status=&assignee_id=&mine_only=
func (h *TaskHandler) ListForProject(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var filters services.TaskFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	tasks, err := h.taskService.ListForProject(projectID, middleware.GetUserID(c), &filters)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tasks)
}

// Create creates a task in a project
// POST /api/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Create(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, task)
}

// Get returns one task
// GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Update applies a partial update
// PATCH /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	task, err := h.taskService.Update(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, task)
}

// Delete removes a task, leaving its audit trail behind
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(id, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ListEvents returns a task's audit trail
// GET /api/tasks/:id/events
func (h *TaskHandler) ListEvents(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	events, err := h.taskService.ListEvents(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, events)
}

// Week returns the caller's assigned tasks for one week
// GET /api/tasks/week?start=2026-08-24
func (h *TaskHandler) Week(c *gin.Context) {
	start := c.Query("start")
	var weekStart time.Time
	if start == "" {
		now := time.Now().UTC()
		// default to the current week's Monday
		offset := (int(now.Weekday()) + 6) % 7
		weekStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			AddDate(0, 0, -offset)
	} else {
		var err error
		weekStart, err = time.Parse("2006-01-02", start)
		if err != nil {
			response.BadRequest(c, "invalid start date, expected YYYY-MM-DD")
			return
		}
	}

	tasks, err := h.taskService.WeekTasks(middleware.GetUserID(c), weekStart)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, tasks)
}
