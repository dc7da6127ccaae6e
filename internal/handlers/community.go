package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shallot/internal/db"
	"shallot/internal/middleware"
	"shallot/internal/models"
	"shallot/internal/services"
)

type CommunityHandler struct{}

func NewCommunityHandler() *CommunityHandler {
	return &CommunityHandler{}
}

// 社区名：小写字母开头，字母数字下划线，3-30 位
var communityNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]{2,29}$`)

type CommunityResponse struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	// 以下按当前访问者填充，匿名为 null
	Member      *bool      `json:"member,omitempty"`
	Moderator   *bool      `json:"moderator,omitempty"`
	Favorited   *bool      `json:"favorited,omitempty"`
	FavoritedAt *time.Time `json:"favorited_at,omitempty"`
}

// memberCounts 批量统计社区成员数
func memberCounts(ids []uint) map[uint]int {
	countMap := make(map[uint]int)
	if len(ids) == 0 {
		return countMap
	}

	type CountResult struct {
		CommunityID uint
		Count       int
	}
	var results []CountResult
	db.DB.Model(&models.Membership{}).
		Select("community_id, COUNT(*) as count").
		Where("community_id IN ? AND member = ?", ids, true).
		Group("community_id").
		Scan(&results)

	for _, r := range results {
		countMap[r.CommunityID] = r.Count
	}
	return countMap
}

func fillMemberCounts(communities []models.Community, resps []*CommunityResponse) {
	ids := make([]uint, len(communities))
	for i, cm := range communities {
		ids[i] = cm.ID
	}
	counts := memberCounts(ids)
	for i := range communities {
		resps[i].MemberCount = counts[communities[i].ID]
	}
}

// List 社区列表：GET /api/communities
func (h *CommunityHandler) List(c *gin.Context) {
	var communities []models.Community
	if err := db.DB.Order("name ASC").Find(&communities).Error; err != nil {
		abortWithError(c, err)
		return
	}

	resps := make([]*CommunityResponse, len(communities))
	for i := range communities {
		resps[i] = &CommunityResponse{
			Name:        communities[i].Name,
			Title:       communities[i].Title,
			Description: communities[i].Description,
			CreatedAt:   communities[i].CreatedAt,
		}
	}
	fillMemberCounts(communities, resps)

	// 登录访问者批量标注成员关系
	if viewerID := middleware.ViewerID(c); viewerID != nil {
		var memberships []models.Membership
		db.DB.Where("user_id = ?", *viewerID).Find(&memberships)
		memberMap := make(map[uint]*models.Membership, len(memberships))
		for i := range memberships {
			memberMap[memberships[i].CommunityID] = &memberships[i]
		}
		for i := range communities {
			member, moderator, favorited := false, false, false
			var favoritedAt *time.Time
			if m, ok := memberMap[communities[i].ID]; ok {
				member, moderator, favorited = m.Member, m.Moderator, m.Favorited
				favoritedAt = m.FavoritedAt
			}
			mv, mo, fa := member, moderator, favorited
			resps[i].Member, resps[i].Moderator, resps[i].Favorited = &mv, &mo, &fa
			resps[i].FavoritedAt = favoritedAt
		}
	}

	c.JSON(http.StatusOK, gin.H{"communities": resps})
}

type CreateCommunityReq struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Create 建社区：POST /api/communities，创建者自动成为版主
func (h *CommunityHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req CreateCommunityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if !communityNameRe.MatchString(req.Name) {
		JSONError(c, http.StatusBadRequest, "community name must match [a-z][a-z0-9_]{2,29}")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		req.Title = req.Name
	}

	var existing models.Community
	if err := db.DB.Where("name = ?", req.Name).First(&existing).Error; err == nil {
		JSONError(c, http.StatusBadRequest, "community name already taken")
		return
	}

	community := models.Community{
		Name:        req.Name,
		Title:       req.Title,
		Description: req.Description,
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&community).Error; err != nil {
			return err
		}
		membership := models.Membership{
			UserID:      user.ID,
			CommunityID: community.ID,
			Member:      true,
			Moderator:   true,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, &CommunityResponse{
		Name:        community.Name,
		Title:       community.Title,
		Description: community.Description,
		MemberCount: 1,
		CreatedAt:   community.CreatedAt,
	})
}

// Join 加入/退出社区（开关）：POST /api/communities/:name/join
func (h *CommunityHandler) Join(c *gin.Context) {
	user := middleware.CurrentUser(c)
	name := c.Param("name")

	var community models.Community
	if err := db.DB.Where("name = ?", name).First(&community).Error; err != nil {
		abortWithError(c, fmt.Errorf("community %q: %w", name, err))
		return
	}

	var membership models.Membership
	if err := db.DB.Where("user_id = ? AND community_id = ?", user.ID, community.ID).
		First(&membership).Error; err != nil {
		membership = models.Membership{UserID: user.ID, CommunityID: community.ID}
	}

	membership.Member = !membership.Member
	if !membership.Member {
		// 退出时一并放弃版主身份和特别关注
		membership.Moderator = false
		membership.Favorited = false
		membership.FavoritedAt = nil
	}

	if err := db.DB.Save(&membership).Error; err != nil {
		abortWithError(c, err)
		return
	}

	// 异步结算声望
	if membership.Member {
		services.AddOnionsAsync(user.ID, services.OnionsCommunityJoined, services.ActionCommunityJoined)
	} else {
		services.AddOnionsAsync(user.ID, services.OnionsCommunityLeft, services.ActionCommunityLeft)
	}

	c.JSON(http.StatusOK, gin.H{"member": membership.Member})
}

// Favorite 特别关注开关：POST /api/communities/:name/favorite
func (h *CommunityHandler) Favorite(c *gin.Context) {
	user := middleware.CurrentUser(c)
	name := c.Param("name")

	var community models.Community
	if err := db.DB.Where("name = ?", name).First(&community).Error; err != nil {
		abortWithError(c, fmt.Errorf("community %q: %w", name, err))
		return
	}

	var membership models.Membership
	if err := db.DB.Where("user_id = ? AND community_id = ?", user.ID, community.ID).
		First(&membership).Error; err != nil {
		membership = models.Membership{UserID: user.ID, CommunityID: community.ID}
	}

	membership.Favorited = !membership.Favorited
	if membership.Favorited {
		now := time.Now()
		membership.FavoritedAt = &now
	} else {
		membership.FavoritedAt = nil
	}

	if err := db.DB.Save(&membership).Error; err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorited": membership.Favorited})
}
