package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shallot/internal/middleware"
	"shallot/internal/models"
	"shallot/internal/services"
)

type VoteHandler struct{}

func NewVoteHandler() *VoteHandler {
	return &VoteHandler{}
}

type VoteReq struct {
	Value string `json:"value"` // "up" | "down" | "none"
}

// VoteResponse 投票后回传确认的计数，前端只以此为准刷新显示
type VoteResponse struct {
	Ups        int  `json:"ups"`
	Downs      int  `json:"downs"`
	Score      int  `json:"score"`
	ViewerVote *int `json:"viewer_vote"`
}

func parseVoteValue(s string) (int, bool) {
	switch s {
	case "up":
		return models.VoteUp, true
	case "down":
		return models.VoteDown, true
	case "none":
		return models.VoteNone, true
	}
	return 0, false
}

// Vote 投票状态迁移：POST /api/vote/:type/:id
// 投票写入失败不重试，重试会把增量重复记账。
func (h *VoteHandler) Vote(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req VoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	value, ok := parseVoteValue(req.Value)
	if !ok {
		JSONError(c, http.StatusBadRequest, "value must be one of up/down/none")
		return
	}

	itemType := c.Param("type") // "post" or "comment"
	id := c.Param("id")

	switch itemType {
	case "post":
		post, oldVote, err := services.ApplyPostVote(user.ID, id, value)
		if err != nil {
			abortWithError(c, err)
			return
		}

		// 异步更新排序键 + 给作者结算声望
		services.GetRankingService().ScheduleUpdate(post.ID)
		services.SettleVoteOnions(post.UserID, user.ID, oldVote, value, true)

		v := value
		c.JSON(http.StatusOK, &VoteResponse{
			Ups:        post.Ups,
			Downs:      post.Downs,
			Score:      post.Ups - post.Downs,
			ViewerVote: &v,
		})
	case "comment":
		comment, oldVote, err := services.ApplyCommentVote(user.ID, id, value)
		if err != nil {
			abortWithError(c, err)
			return
		}

		services.SettleVoteOnions(comment.UserID, user.ID, oldVote, value, false)

		v := value
		c.JSON(http.StatusOK, &VoteResponse{
			Ups:        comment.Ups,
			Downs:      comment.Downs,
			Score:      comment.Ups - comment.Downs,
			ViewerVote: &v,
		})
	default:
		JSONError(c, http.StatusBadRequest, "type must be post or comment")
	}
}
