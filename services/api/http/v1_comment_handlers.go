package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/comments"
	"github.com/gewaesserguete/digitale-gewaesserguete/services/api/db"
)

// userHeader carries the email of the signed-in user.
const userHeader = "X-User-Email"

type listCommentsQuery struct {
	StepID    string `form:"step_id" binding:"max=100"`
	SectionID string `form:"section_id" binding:"max=100"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

type createCommentRequest struct {
	AuthorEmail string `json:"author_email" binding:"required,email"`
	AuthorName  string `json:"author_name" binding:"max=200"`
	Text        string `json:"text" binding:"required,max=20000"`
	StepID      string `json:"step_id" binding:"required,max=100"`
	SectionID   string `json:"section_id" binding:"required,max=100"`
	DetailLevel string `json:"detail_level" binding:"required,oneof=citizen administration research"`
}

type loginRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Name           string `json:"name" binding:"max=200"`
	NotifyComments bool   `json:"notify_comments"`
}

// handleV1ListComments returns comments, newest first
// GET /api/v1/comments?step_id=&section_id=&limit=
func (s *Server) handleV1ListComments(c *gin.Context) {
	var q listCommentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	list, err := s.deps.Comments.List(ctx, db.CommentFilter{StepID: q.StepID, SectionID: q.SectionID, Limit: q.Limit})
	if err != nil {
		s.commentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": list,
		"meta": gin.H{
			"count": len(list),
		},
	})
}

// handleV1CreateComment stores a comment and queues it for the digest
// POST /api/v1/comments
func (s *Server) handleV1CreateComment(c *gin.Context) {
	var body createCommentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	created, err := s.deps.Comments.Create(ctx, comments.NewComment{
		AuthorEmail: body.AuthorEmail,
		AuthorName:  body.AuthorName,
		Text:        body.Text,
		StepID:      body.StepID,
		SectionID:   body.SectionID,
		DetailLevel: body.DetailLevel,
	})
	if err != nil {
		s.commentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// handleV1GetComment returns one comment
// GET /api/v1/comments/:id
func (s *Server) handleV1GetComment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	comment, err := s.deps.Comments.Get(ctx, id)
	if err != nil {
		s.commentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": comment})
}

// handleV1DeleteComment removes a comment; admins only
// DELETE /api/v1/comments/:id
//
// The requester header is only trusted behind bearer auth, so deletion is
// disabled when no API token is configured.
func (s *Server) handleV1DeleteComment(c *gin.Context) {
	if s.cfg.BearerToken == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "comment deletion requires API_BEARER_TOKEN"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := s.deps.Comments.Delete(ctx, id, c.GetHeader(userHeader)); err != nil {
		s.commentError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// handleV1Login upserts the user and the notification preference
// POST /api/v1/users/login
func (s *Server) handleV1Login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	user, err := s.deps.Comments.Login(ctx, body.Email, body.Name, body.NotifyComments)
	if err != nil {
		s.commentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

func (s *Server) commentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, comments.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, comments.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "only administrators may delete comments"})
	case errors.Is(err, comments.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
	default:
		s.log.Error("comment request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
