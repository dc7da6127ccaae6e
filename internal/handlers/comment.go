package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shallot/internal/db"
	"shallot/internal/middleware"
	"shallot/internal/models"
	"shallot/internal/services"
	"shallot/internal/utils"
)

type CommentHandler struct{}

func NewCommentHandler() *CommentHandler {
	return &CommentHandler{}
}

type CreateCommentReq struct {
	Content   string `json:"content"`
	ParentCid string `json:"parent_cid"` // 回复某条评论时带上，顶层评论留空
}

// Create 发表评论：POST /api/posts/:pid/comments
func (h *CommentHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	pid := c.Param("pid")

	var req CreateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		JSONError(c, http.StatusBadRequest, "content is required")
		return
	}

	var post models.Post
	if err := db.DB.Where("pid = ?", pid).First(&post).Error; err != nil {
		abortWithError(c, fmt.Errorf("post %q: %w", pid, err))
		return
	}

	// 回复评论时校验父评论属于同一帖子
	var parentID *uint
	var parent models.Comment
	if req.ParentCid != "" {
		if err := db.DB.Preload("User").Where("cid = ?", req.ParentCid).First(&parent).Error; err != nil {
			abortWithError(c, fmt.Errorf("parent comment %q: %w", req.ParentCid, err))
			return
		}
		if parent.PostID != post.ID {
			JSONError(c, http.StatusBadRequest, "parent comment belongs to another post")
			return
		}
		parentID = &parent.ID
	}

	comment := models.Comment{
		Cid:      utils.RandStringBytesMaskImpr(8),
		PostID:   post.ID,
		UserID:   user.ID,
		ParentID: parentID,
		Content:  req.Content,
		Ups:      1, // Self vote
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		// 帖子的评论总数与评论行同事务维护
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error; err != nil {
			return err
		}
		rel := models.UserCommentRelation{UserID: user.ID, CommentID: comment.ID, Vote: models.VoteUp}
		return tx.Create(&rel).Error
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	// 异步更新帖子排序键
	services.GetRankingService().ScheduleUpdate(post.ID)

	// Create Notifications
	go func() {
		// 如果是回复评论，只通知被回复者
		if comment.ParentID != nil {
			if parent.UserID != user.ID {
				notification := models.Notification{
					UserID:     parent.UserID,
					ActorID:    &user.ID,
					Type:       models.NotificationTypeReplyComment,
					PostPid:    post.Pid,
					CommentCid: comment.Cid,
					Body:       fmt.Sprintf("%s 回复了您在《%s》下的评论", user.Username, post.Title),
				}
				db.DB.Create(&notification)
			}
		} else {
			// 直接评论帖子，通知帖子作者
			if post.UserID != user.ID {
				notification := models.Notification{
					UserID:     post.UserID,
					ActorID:    &user.ID,
					Type:       models.NotificationTypeCommentPost,
					PostPid:    post.Pid,
					CommentCid: comment.Cid,
					Body:       fmt.Sprintf("%s 评论了您的帖子《%s》", user.Username, post.Title),
				}
				db.DB.Create(&notification)
			}
		}
	}()

	comment.User = *user
	v, s := models.VoteUp, false
	comment.ViewerVote, comment.ViewerSaved = &v, &s

	c.JSON(http.StatusCreated, buildCommentResponse(&comment))
}

// Save 收藏/取消收藏评论：POST /api/comments/:cid/save
func (h *CommentHandler) Save(c *gin.Context) {
	user := middleware.CurrentUser(c)

	_, saved, err := services.ToggleCommentSave(user.ID, c.Param("cid"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved})
}
