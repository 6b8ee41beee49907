package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceHandler(db *gorm.DB) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: services.NewWorkspaceService(db),
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// List returns the caller's workspaces with their role in each
// GET /api/workspaces
func (h *WorkspaceHandler) List(c *gin.Context) {
	workspaces, err := h.workspaceService.ListForUser(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, workspaces)
}

// Create creates a workspace owned by the caller
// POST /api/workspaces
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req services.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	workspace, err := h.workspaceService.Create(middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, workspace)
}

// Get returns one workspace
// GET /api/workspaces/:id
func (h *WorkspaceHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	workspace, err := h.workspaceService.Get(id, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, workspace)
}

// Update updates workspace fields
// PATCH /api/workspaces/:id
func (h *WorkspaceHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	workspace, err := h.workspaceService.Update(id, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, workspace)
}

// Delete removes a workspace and everything under it
// DELETE /api/workspaces/:id
func (h *WorkspaceHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.workspaceService.Delete(id, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
