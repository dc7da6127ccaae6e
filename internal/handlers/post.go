package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"shallot/internal/db"
	"shallot/internal/feed"
	"shallot/internal/middleware"
	"shallot/internal/models"
	"shallot/internal/services"
	"shallot/internal/utils"
)

type PostHandler struct{}

func NewPostHandler() *PostHandler {
	return &PostHandler{}
}

type CreatePostReq struct {
	Community string   `json:"community"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	MediaKeys []string `json:"media_keys"`
}

// mediaURL 由对象存储 key 拼出可访问地址。文件本体的上传在外部完成，
// 这里从不接触文件字节。
func mediaURL(key string) string {
	base := os.Getenv("MEDIA_BASE_URL")
	if base == "" {
		base = "https://media.shallot.dev"
	}
	return strings.TrimSuffix(base, "/") + "/" + key
}

// Create 发帖：POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req CreatePostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		JSONError(c, http.StatusBadRequest, "title is required")
		return
	}
	if len([]rune(req.Title)) > 300 {
		JSONError(c, http.StatusBadRequest, "title too long")
		return
	}

	var community models.Community
	if err := db.DB.Where("name = ?", req.Community).First(&community).Error; err != nil {
		abortWithError(c, fmt.Errorf("community %q: %w", req.Community, err))
		return
	}

	post := models.Post{
		Pid:         utils.RandStringBytesMaskImpr(8),
		UserID:      user.ID,
		CommunityID: community.ID,
		Title:       req.Title,
		Content:     req.Content,
		Ups:         1, // Self vote
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		for i, key := range req.MediaKeys {
			media := models.PostMedia{
				PostID:   post.ID,
				Key:      key,
				URL:      mediaURL(key),
				Position: i,
			}
			if err := tx.Create(&media).Error; err != nil {
				return err
			}
			post.Media = append(post.Media, media)
		}
		// 自赞的状态行与计数一并入库
		rel := models.UserPostRelation{UserID: user.ID, PostID: post.ID, Vote: models.VoteUp}
		return tx.Create(&rel).Error
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	// 新帖立即算一次排序键，否则要等异步 worker
	services.UpdatePostRanksSync(post.ID)

	post.User = *user
	post.Community = community
	v, s, hd := models.VoteUp, false, false
	post.ViewerVote, post.ViewerSaved, post.ViewerHidden = &v, &s, &hd

	c.JSON(http.StatusCreated, buildPostResponse(&post))
}

// CommentNode 嵌套的评论树节点
type CommentNode struct {
	*CommentResponse
	Replies []*CommentNode `json:"replies"`
}

// buildCommentTree 单次分组遍历重建评论树：按 parent_id 归组，
// 顶层评论的 parent 为 NULL。创建时间升序保证父节点一定先于子节点出现。
func buildCommentTree(comments []models.Comment) []*CommentNode {
	nodes := make(map[uint]*CommentNode, len(comments))
	roots := make([]*CommentNode, 0)

	for i := range comments {
		cm := &comments[i]
		node := &CommentNode{
			CommentResponse: buildCommentResponse(cm),
			Replies:         make([]*CommentNode, 0),
		}
		nodes[cm.ID] = node

		if cm.ParentID == nil {
			roots = append(roots, node)
		} else if parent, ok := nodes[*cm.ParentID]; ok {
			parent.Replies = append(parent.Replies, node)
		} else {
			// 父节点缺失（理论上不会发生），降级为顶层
			roots = append(roots, node)
		}
	}

	return roots
}

// PostDetailResponse 帖子详情 + 嵌套评论树
type PostDetailResponse struct {
	Post     *PostResponse  `json:"post"`
	Comments []*CommentNode `json:"comments"`
}

// Detail 帖子详情：GET /api/posts/:pid
func (h *PostHandler) Detail(c *gin.Context) {
	pid := c.Param("pid")
	viewerID := middleware.ViewerID(c)

	var post models.Post
	if err := db.DB.Preload("User").Preload("Community").Preload("Media").
		Where("pid = ?", pid).First(&post).Error; err != nil {
		abortWithError(c, err)
		return
	}

	// 平铺取全量评论，在内存里一次分组建树，避免递归查库
	var comments []models.Comment
	if err := db.DB.Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		abortWithError(c, err)
		return
	}

	posts := []models.Post{post}
	if err := feed.AnnotatePosts(viewerID, posts); err != nil {
		abortWithError(c, err)
		return
	}
	if err := feed.AnnotateComments(viewerID, comments); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, &PostDetailResponse{
		Post:     buildPostResponse(&posts[0]),
		Comments: buildCommentTree(comments),
	})
}

// Save 收藏/取消收藏：POST /api/posts/:pid/save
func (h *PostHandler) Save(c *gin.Context) {
	user := middleware.CurrentUser(c)

	post, saved, err := services.TogglePostSave(user.ID, c.Param("pid"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	// 异步给帖子作者结算声望
	if post.UserID != user.ID {
		if saved {
			services.AddOnionsAsync(post.UserID, services.OnionsPostSaved, services.ActionPostSaved)
		} else {
			services.AddOnionsAsync(post.UserID, services.OnionsPostUnsaved, services.ActionPostUnsaved)
		}
	}

	c.JSON(http.StatusOK, gin.H{"saved": saved})
}

// Hide 隐藏/取消隐藏：POST /api/posts/:pid/hide
func (h *PostHandler) Hide(c *gin.Context) {
	user := middleware.CurrentUser(c)

	_, hidden, err := services.TogglePostHide(user.ID, c.Param("pid"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hidden": hidden})
}
