package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/schoolsnap-attendance-api/internal/dto"
	"github.com/noah-isme/schoolsnap-attendance-api/internal/service"
	"github.com/noah-isme/schoolsnap-attendance-api/pkg/response"
)

// LikesHandler exposes per-user liked flags for feed posts.
type LikesHandler struct {
	likes    *service.LikesService
	validate *validator.Validate
}

// NewLikesHandler constructs handler.
func NewLikesHandler(likes *service.LikesService, validate *validator.Validate) *LikesHandler {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &LikesHandler{likes: likes, validate: validate}
}

// List godoc
// @Summary List posts the caller liked
// @Tags Likes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /posts/likes [get]
func (h *LikesHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"liked_post_ids": h.likes.Liked(p)}, nil)
}

// Like godoc
// @Summary Like, unlike or toggle a post
// @Tags Likes
// @Accept json
// @Produce json
// @Param postId path int true "Post ID"
// @Param payload body dto.LikeRequest false "Explicit value; omit to toggle"
// @Success 200 {object} response.Envelope
// @Router /posts/{postId}/like [put]
func (h *LikesHandler) Like(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	postID, ok := int64Param(c, "postId")
	if !ok {
		return
	}
	var req dto.LikeRequest
	if c.Request.ContentLength != 0 && !bind(c, h.validate, &req) {
		return
	}
	var liked bool
	if req.Liked == nil {
		liked = h.likes.Toggle(p, postID)
	} else {
		liked = h.likes.Set(p, postID, *req.Liked)
	}
	response.JSON(c, http.StatusOK, gin.H{"post_id": postID, "liked": liked}, nil)
}

// Merge godoc
// @Summary Seed liked flags from a loaded feed page
// @Tags Likes
// @Accept json
// @Produce json
// @Param payload body dto.MergeLikesRequest true "Posts with their liked flag"
// @Success 200 {object} response.Envelope
// @Router /posts/likes [post]
func (h *LikesHandler) Merge(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.MergeLikesRequest
	if !bind(c, h.validate, &req) {
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"liked_post_ids": h.likes.Merge(p, req.Posts)}, nil)
}
