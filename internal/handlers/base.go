package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shallot/internal/feed"
	"shallot/internal/logger"
	"shallot/internal/models"
	"shallot/internal/utils"
)

// JSONError 统一错误信封 {message, code}
func JSONError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"message": message,
		"code":    status,
	})
}

// abortWithError 把内部错误翻译成 HTTP 状态码。
// 校验错误在进入核心之前就拦掉了，这里只剩 NotFound / Unauthorized / Internal 三类。
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		JSONError(c, http.StatusNotFound, "not found")
	case errors.Is(err, feed.ErrUnauthorized):
		JSONError(c, http.StatusUnauthorized, "authentication required")
	default:
		logger.L().Errorf("internal error: %v", err)
		JSONError(c, http.StatusInternalServerError, "internal error")
	}
}

type AuthorResponse struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type CommunityBrief struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

type MediaResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type PostResponse struct {
	ID           string          `json:"id"` // 公开短 ID (pid)
	Title        string          `json:"title"`
	Content      string          `json:"content,omitempty"`
	ContentHTML  string          `json:"content_html,omitempty"`
	Author       *AuthorResponse `json:"author"`
	Community    *CommunityBrief `json:"community"`
	Ups          int             `json:"ups"`
	Downs        int             `json:"downs"`
	Score        int             `json:"score"`
	CommentCount int             `json:"comment_count"`
	Media        []MediaResponse `json:"media"`
	CreatedAt    time.Time       `json:"created_at"`
	// 匿名访问时三项均为 null
	ViewerVote   *int  `json:"viewer_vote"`
	ViewerSaved  *bool `json:"viewer_saved"`
	ViewerHidden *bool `json:"viewer_hidden"`
}

type CommentResponse struct {
	ID          string          `json:"id"` // 公开短 ID (cid)
	Content     string          `json:"content"`
	ContentHTML string          `json:"content_html"`
	Author      *AuthorResponse `json:"author"`
	Ups         int             `json:"ups"`
	Downs       int             `json:"downs"`
	CreatedAt   time.Time       `json:"created_at"`
	ViewerVote  *int            `json:"viewer_vote"`
	ViewerSaved *bool           `json:"viewer_saved"`
}

func buildPostResponse(p *models.Post) *PostResponse {
	resp := &PostResponse{
		ID:           p.Pid,
		Title:        p.Title,
		Content:      p.Content,
		ContentHTML:  utils.RenderMarkdown(p.Content),
		Ups:          p.Ups,
		Downs:        p.Downs,
		Score:        p.Ups - p.Downs,
		CommentCount: p.CommentCount,
		Media:        make([]MediaResponse, 0, len(p.Media)),
		CreatedAt:    p.CreatedAt,
		ViewerVote:   p.ViewerVote,
		ViewerSaved:  p.ViewerSaved,
		ViewerHidden: p.ViewerHidden,
	}
	if p.User.ID != 0 {
		resp.Author = &AuthorResponse{Username: p.User.Username, Avatar: p.User.Avatar}
	}
	if p.Community.ID != 0 {
		resp.Community = &CommunityBrief{Name: p.Community.Name, Title: p.Community.Title}
	}
	for _, m := range p.Media {
		resp.Media = append(resp.Media, MediaResponse{Key: m.Key, URL: m.URL})
	}
	return resp
}

func buildCommentResponse(cm *models.Comment) *CommentResponse {
	resp := &CommentResponse{
		ID:          cm.Cid,
		Content:     cm.Content,
		ContentHTML: utils.RenderMarkdown(cm.Content),
		Ups:         cm.Ups,
		Downs:       cm.Downs,
		CreatedAt:   cm.CreatedAt,
		ViewerVote:  cm.ViewerVote,
		ViewerSaved: cm.ViewerSaved,
	}
	if cm.User.ID != 0 {
		resp.Author = &AuthorResponse{Username: cm.User.Username, Avatar: cm.User.Avatar}
	}
	return resp
}
