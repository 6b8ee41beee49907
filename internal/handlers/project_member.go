package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectMemberHandler struct {
	projectService *services.ProjectService
}

func NewProjectMemberHandler(db *gorm.DB) *ProjectMemberHandler {
	return &ProjectMemberHandler{
		projectService: services.NewProjectService(db),
	}
}

// List returns a project's direct members
// GET /api/projects/:id/members
func (h *ProjectMemberHandler) List(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	members, err := h.projectService.ListMembers(projectID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// Add adds or re-roles a member by email
// POST /api/projects/:id/members
func (h *ProjectMemberHandler) Add(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.projectService.AddMember(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// UpdateRole changes a member's project role
// PATCH /api/projects/:id/members/:userId
func (h *ProjectMemberHandler) UpdateRole(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}

	var req struct {
		Role models.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.projectService.UpdateMemberRole(projectID, middleware.GetUserID(c), targetID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, member)
}

// Remove deletes a project membership
// DELETE /api/projects/:id/members/:userId
func (h *ProjectMemberHandler) Remove(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(projectID, middleware.GetUserID(c), targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
