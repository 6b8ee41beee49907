package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{
		projectService: services.NewProjectService(db),
	}
}

// ListForWorkspace returns a workspace's projects with the caller's role in each
// GET /api/workspaces/:id/projects
func (h *ProjectHandler) ListForWorkspace(c *gin.Context) {
	workspaceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	projects, err := h.projectService.ListForWorkspace(workspaceID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, projects)
}

// Create creates a project in a workspace
// POST /api/workspaces/:id/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	workspaceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(workspaceID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Get returns one project
// GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Update updates project fields
// PATCH /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Update(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, project)
}

// Delete removes a project and everything under it
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(id, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
