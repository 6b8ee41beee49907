package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ShareLinkHandler struct {
	shareLinkService *services.ShareLinkService
}

func NewShareLinkHandler(db *gorm.DB) *ShareLinkHandler {
	return &ShareLinkHandler{
		shareLinkService: services.NewShareLinkService(db),
	}
}

// Create mints a share link for a project
// POST /api/projects/:id/share-links
func (h *ShareLinkHandler) Create(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	link, err := h.shareLinkService.Create(projectID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, link)
}

// List returns a project's share links
// GET /api/projects/:id/share-links
func (h *ShareLinkHandler) List(c *gin.Context) {
	projectID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	links, err := h.shareLinkService.List(projectID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, links)
}

// Update toggles a share link on or off
// PATCH /api/share-links/:id
func (h *ShareLinkHandler) Update(c *gin.Context) {
	linkID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	link, err := h.shareLinkService.SetActive(linkID, middleware.GetUserID(c), *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, link)
}

// Delete removes a share link permanently
// DELETE /api/share-links/:id
func (h *ShareLinkHandler) Delete(c *gin.Context) {
	linkID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.shareLinkService.Delete(linkID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Resolve serves the anonymous shared view behind a token
// GET /api/share/:token (no auth, rate limited)
func (h *ShareLinkHandler) Resolve(c *gin.Context) {
	shared, err := h.shareLinkService.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, shared)
}
