package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"shallot/internal/db"
	"shallot/internal/models"
)

const CheckUserKey = "user"
const UnreadCountKey = "unread_count"

// LoadUser 从会话里解析访问者并放进请求上下文。
// 会话由身份提供方的票据兑换建立，这里只认 user_id。
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID != nil {
			var user models.User
			result := db.DB.First(&user, userID)
			if result.Error == nil {
				c.Set(CheckUserKey, &user)

				// Fetch Unread Notification Count
				var count int64
				db.DB.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", user.ID, false).Count(&count)
				c.Set(UnreadCountKey, count)
			}
		}
		c.Next()
	}
}

// AuthRequired ensures a viewer is present
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "authentication required",
				"code":    http.StatusUnauthorized,
			})
			return
		}
		c.Next()
	}
}

// CurrentUser 取当前访问者，未登录返回 nil
func CurrentUser(c *gin.Context) *models.User {
	if user, exists := c.Get(CheckUserKey); exists {
		return user.(*models.User)
	}
	return nil
}

// ViewerID 取当前访问者 ID，匿名访问返回 nil
func ViewerID(c *gin.Context) *uint {
	if user := CurrentUser(c); user != nil {
		id := user.ID
		return &id
	}
	return nil
}
