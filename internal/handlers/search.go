package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"shallot/internal/db"
	"shallot/internal/feed"
	"shallot/internal/middleware"
	"shallot/internal/models"
)

const searchLimit = 20

type SearchHandler struct{}

func NewSearchHandler() *SearchHandler {
	return &SearchHandler{}
}

type SearchUserResult struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Onions   int    `json:"onions"`
}

type SearchCommunityResult struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	MemberCount int    `json:"member_count"`
}

type SearchResponse struct {
	Posts       []*PostResponse         `json:"posts"`
	Users       []SearchUserResult      `json:"users"`
	Communities []SearchCommunityResult `json:"communities"`
}

// Search 站内搜索：GET /api/search?q=
// 帖子、用户、社区三路并发查询，互不阻塞。
func (h *SearchHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		JSONError(c, http.StatusBadRequest, "missing query parameter q")
		return
	}
	pattern := "%" + strings.ToLower(q) + "%"

	var (
		wg          sync.WaitGroup
		posts       []models.Post
		users       []models.User
		communities []models.Community
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		db.DB.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern).
			Preload("User").Preload("Community").Preload("Media").
			Order("created_at DESC").Limit(searchLimit).Find(&posts)
	}()
	go func() {
		defer wg.Done()
		db.DB.Where("LOWER(username) LIKE ?", pattern).
			Order("onions DESC").Limit(searchLimit).Find(&users)
	}()
	go func() {
		defer wg.Done()
		db.DB.Where("LOWER(name) LIKE ? OR LOWER(title) LIKE ?", pattern, pattern).
			Limit(searchLimit).Find(&communities)
	}()
	wg.Wait()

	feed.AnnotatePosts(middleware.ViewerID(c), posts)

	resp := SearchResponse{
		Posts:       make([]*PostResponse, 0, len(posts)),
		Users:       make([]SearchUserResult, 0, len(users)),
		Communities: make([]SearchCommunityResult, 0, len(communities)),
	}
	for i := range posts {
		resp.Posts = append(resp.Posts, buildPostResponse(&posts[i]))
	}
	for _, u := range users {
		resp.Users = append(resp.Users, SearchUserResult{Username: u.Username, Avatar: u.Avatar, Onions: u.Onions})
	}

	ids := make([]uint, 0, len(communities))
	for _, cm := range communities {
		ids = append(ids, cm.ID)
	}
	counts := memberCounts(ids)
	for _, cm := range communities {
		resp.Communities = append(resp.Communities, SearchCommunityResult{
			Name:        cm.Name,
			Title:       cm.Title,
			MemberCount: counts[cm.ID],
		})
	}

	c.JSON(http.StatusOK, resp)
}
