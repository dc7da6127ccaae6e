package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shallot/internal/db"
	"shallot/internal/middleware"
	"shallot/internal/models"
	"shallot/internal/utils"
)

type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

type NotificationResponse struct {
	ID         uint      `json:"id"`
	Type       string    `json:"type"`
	Actor      string    `json:"actor"`
	PostPid    string    `json:"post_pid"`
	CommentCid string    `json:"comment_cid,omitempty"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// List 通知列表：GET /api/notifications，最近 50 条
func (h *NotificationHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var notifications []models.Notification
	if err := db.DB.Where("user_id = ?", user.ID).
		Preload("Actor").
		Order("created_at DESC").
		Limit(50).
		Find(&notifications).Error; err != nil {
		abortWithError(c, err)
		return
	}

	resp := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, NotificationResponse{
			ID:         n.ID,
			Type:       string(n.Type),
			Actor:      n.Actor.Username,
			PostPid:    n.PostPid,
			CommentCid: n.CommentCid,
			IsRead:     n.IsRead,
			CreatedAt:  n.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}

// Read 标记单条已读：POST /api/notifications/:id/read
// 只能标记属于自己的通知。
func (h *NotificationHandler) Read(c *gin.Context) {
	user := middleware.CurrentUser(c)

	id := utils.StringToInt(c.Param("id"))
	if id <= 0 {
		JSONError(c, http.StatusBadRequest, "invalid notification id")
		return
	}

	var notification models.Notification
	if err := db.DB.Where("id = ? AND user_id = ?", id, user.ID).
		First(&notification).Error; err != nil {
		abortWithError(c, err)
		return
	}

	if !notification.IsRead {
		if err := db.DB.Model(&notification).Update("is_read", true).Error; err != nil {
			abortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// ReadAll 全部已读：POST /api/notifications/read_all
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if err := db.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true).Error; err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
