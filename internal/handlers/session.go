package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shallot/internal/db"
	"shallot/internal/models"
)

type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

type CreateSessionReq struct {
	Subject string `json:"subject" binding:"required"`
}

// Create 票据兑换会话：POST /api/session
// 身份提供方校验完凭据后，前端拿 subject 来换本站会话。
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}

	subject, err := uuid.Parse(req.Subject)
	if err != nil {
		JSONError(c, http.StatusBadRequest, "subject must be a UUID")
		return
	}

	var user models.User
	if err := db.DB.Where("external_id = ?", subject.String()).First(&user).Error; err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": user.Username, "onions": user.Onions})
}

// Destroy 退出登录:DELETE /api/session
func (h *SessionHandler) Destroy(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{MaxAge: -1})
	if err := session.Save(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
