package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shallot/internal/feed"
	"shallot/internal/middleware"
	"shallot/internal/utils"
)

type FeedHandler struct{}

func NewFeedHandler() *FeedHandler {
	return &FeedHandler{}
}

// FeedResponse 一页信息流。next_cursor 为 null 表示没有下一页
type FeedResponse struct {
	Items      []*PostResponse `json:"items"`
	NextCursor *string         `json:"next_cursor"`
}

// Get 信息流统一入口：GET /api/feed?scope=&sort=&community=&user=&cursor=
func (h *FeedHandler) Get(c *gin.Context) {
	scope, err := feed.ParseScope(c.DefaultQuery("scope", "all"))
	if err != nil {
		JSONError(c, http.StatusBadRequest, err.Error())
		return
	}
	sort, err := feed.ParseSort(c.DefaultQuery("sort", "hot"))
	if err != nil {
		JSONError(c, http.StatusBadRequest, err.Error())
		return
	}

	viewerID := middleware.ViewerID(c)

	q := feed.Query{
		Scope:     scope,
		Sort:      sort,
		Community: c.Query("community"),
		Username:  c.Query("user"),
		Cursor:    c.Query("cursor"),
	}

	// 匿名访问的公共页结果不含个人状态，可以整页短缓存
	var cacheKey string
	if viewerID == nil {
		cacheKey = fmt.Sprintf("feed:%s:%s:%s:%s:%s", scope, sort, q.Community, q.Username, q.Cursor)
		if cached := utils.GetCache().Get(cacheKey); cached != nil {
			if resp, ok := cached.(*FeedResponse); ok {
				c.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	page, err := feed.Get(viewerID, q)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := &FeedResponse{
		Items:      make([]*PostResponse, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Items {
		resp.Items = append(resp.Items, buildPostResponse(&page.Items[i]))
	}

	// 写入缓存，有效期 1 分钟
	if cacheKey != "" {
		utils.GetCache().Set(cacheKey, resp, 1*time.Minute)
	}

	c.JSON(http.StatusOK, resp)
}
