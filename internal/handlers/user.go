package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shallot/internal/db"
	"shallot/internal/feed"
	"shallot/internal/middleware"
	"shallot/internal/models"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

type ProfileResponse struct {
	Username     string          `json:"username"`
	Avatar       string          `json:"avatar"`
	Bio          string          `json:"bio"`
	Onions       int             `json:"onions"` // 洋葱声望
	PostCount    int64           `json:"post_count"`
	CommentCount int64           `json:"comment_count"`
	JoinedAt     time.Time       `json:"joined_at"`
	RecentPosts  []*PostResponse `json:"recent_posts"`
}

// Profile 公开主页：GET /api/users/:username
func (h *UserHandler) Profile(c *gin.Context) {
	username := c.Param("username")

	var user models.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		abortWithError(c, fmt.Errorf("user %q: %w", username, err))
		return
	}

	var postCount, commentCount int64
	db.DB.Model(&models.Post{}).Where("user_id = ?", user.ID).Count(&postCount)
	db.DB.Model(&models.Comment{}).Where("user_id = ?", user.ID).Count(&commentCount)

	// 最近发帖直接走信息流装配（user 范围 + new 排序）
	page, err := feed.Get(middleware.ViewerID(c), feed.Query{
		Scope:    feed.ScopeUser,
		Sort:     feed.SortNew,
		Username: username,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	recent := make([]*PostResponse, 0, len(page.Items))
	for i := range page.Items {
		recent = append(recent, buildPostResponse(&page.Items[i]))
	}

	c.JSON(http.StatusOK, &ProfileResponse{
		Username:     user.Username,
		Avatar:       user.Avatar,
		Bio:          user.Bio,
		Onions:       user.Onions,
		PostCount:    postCount,
		CommentCount: commentCount,
		JoinedAt:     user.CreatedAt,
		RecentPosts:  recent,
	})
}

// Me 当前访问者：GET /api/me
func (h *UserHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		JSONError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	unread := 0
	if count, ok := c.Get(middleware.UnreadCountKey); ok {
		unread = int(count.(int64))
	}

	c.JSON(http.StatusOK, gin.H{
		"username":     user.Username,
		"avatar":       user.Avatar,
		"bio":          user.Bio,
		"onions":       user.Onions,
		"unread_count": unread,
	})
}
