package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type WorkspaceMemberHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceMemberHandler(db *gorm.DB) *WorkspaceMemberHandler {
	return &WorkspaceMemberHandler{
		workspaceService: services.NewWorkspaceService(db),
	}
}

// List returns a workspace's members
// GET /api/workspaces/:id/members
func (h *WorkspaceMemberHandler) List(c *gin.Context) {
	workspaceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	members, err := h.workspaceService.ListMembers(workspaceID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, members)
}

// Invite adds or re-roles a member by email
// POST /api/workspaces/:id/members
func (h *WorkspaceMemberHandler) Invite(c *gin.Context) {
	workspaceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.workspaceService.InviteMember(workspaceID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, member)
}

// Remove deletes a membership
// DELETE /api/workspaces/:id/members/:userId
func (h *WorkspaceMemberHandler) Remove(c *gin.Context) {
	workspaceID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := parseUUIDParam(c, "userId")
	if !ok {
		return
	}

	if err := h.workspaceService.RemoveMember(workspaceID, middleware.GetUserID(c), targetID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
