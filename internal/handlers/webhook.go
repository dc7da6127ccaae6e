package handlers

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"shallot/internal/db"
	"shallot/internal/logger"
	"shallot/internal/models"
)

const webhookSecretHeader = "X-Shallot-Webhook-Secret"

type WebhookHandler struct{}

func NewWebhookHandler() *WebhookHandler {
	return &WebhookHandler{}
}

type IdentityEvent struct {
	Event    string `json:"event" binding:"required"` // user.created / user.updated / user.deleted
	Subject  string `json:"subject" binding:"required"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
}

// Identity 身份提供方回调：POST /webhooks/identity
// 用户的创建、资料变更、注销都从这里进来，本地不做注册。
func (h *WebhookHandler) Identity(c *gin.Context) {
	secret := os.Getenv("WEBHOOK_SECRET")
	provided := c.GetHeader(webhookSecretHeader)
	if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		JSONError(c, http.StatusUnauthorized, "invalid webhook secret")
		return
	}

	var event IdentityEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	subject, err := uuid.Parse(event.Subject)
	if err != nil {
		JSONError(c, http.StatusBadRequest, "subject must be a UUID")
		return
	}
	externalID := subject.String()

	switch event.Event {
	case "user.created", "user.updated":
		if event.Username == "" {
			JSONError(c, http.StatusBadRequest, "username is required")
			return
		}
		err = db.DB.Transaction(func(tx *gorm.DB) error {
			var user models.User
			result := tx.Where("external_id = ?", externalID).First(&user)
			if result.Error != nil {
				if result.Error != gorm.ErrRecordNotFound {
					return result.Error
				}
				user = models.User{ExternalID: externalID}
			}
			user.Username = event.Username
			user.Email = event.Email
			if event.Avatar != "" {
				user.Avatar = event.Avatar
			}
			user.Bio = event.Bio
			return tx.Save(&user).Error
		})
	case "user.deleted":
		err = db.DB.Where("external_id = ?", externalID).Delete(&models.User{}).Error
	default:
		JSONError(c, http.StatusBadRequest, "unknown event: "+event.Event)
		return
	}

	if err != nil {
		abortWithError(c, err)
		return
	}

	logger.L().Infow("identity event processed", "event", event.Event, "subject", externalID)
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
