package handlers

import (
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(db *gorm.DB) *CommentHandler {
	return &CommentHandler{
		commentService: services.NewCommentService(db),
	}
}

// List returns a task's comments
// GET /api/tasks/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	taskID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.commentService.List(taskID, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, comments)
}

// Create adds a comment to a task
// POST /api/tasks/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	taskID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	comment, err := h.commentService.Create(taskID, middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// Delete removes a comment
// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	commentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.commentService.Delete(commentID, middleware.GetUserID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
