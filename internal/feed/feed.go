// Package feed 组装信息流：范围过滤 + 排序 + 键集分页 + 访问者个人状态。
package feed

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shallot/internal/cursor"
	"shallot/internal/db"
	"shallot/internal/models"
	"shallot/internal/rank"
)

// PageSize 固定页大小
const PageSize = 10

// ErrUnauthorized 该范围需要登录的访问者
var ErrUnauthorized = errors.New("feed: viewer required for this scope")

// Scope 信息流取哪部分内容
type Scope string

const (
	ScopeHome      Scope = "home"      // 访问者加入的所有社区
	ScopeAll       Scope = "all"       // 全站
	ScopeCommunity Scope = "community" // 指定社区
	ScopeUser      Scope = "user"      // 指定用户发布的
	ScopeSaved     Scope = "saved"     // 访问者收藏的
	ScopeHidden    Scope = "hidden"    // 访问者隐藏的
	ScopeUpvoted   Scope = "upvoted"   // 访问者点过赞的
	ScopeDownvoted Scope = "downvoted" // 访问者点过踩的
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeHome, ScopeAll, ScopeCommunity, ScopeUser,
		ScopeSaved, ScopeHidden, ScopeUpvoted, ScopeDownvoted:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// requiresViewer 哪些范围离开访问者身份没有意义
func (s Scope) requiresViewer() bool {
	switch s {
	case ScopeHome, ScopeSaved, ScopeHidden, ScopeUpvoted, ScopeDownvoted:
		return true
	}
	return false
}

// Sort 范围内的排序模式
type Sort string

const (
	SortBest          Sort = "best"
	SortHot           Sort = "hot"
	SortNew           Sort = "new"
	SortControversial Sort = "controversial"
)

func ParseSort(s string) (Sort, error) {
	switch Sort(s) {
	case SortBest, SortHot, SortNew, SortControversial:
		return Sort(s), nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// keyColumn 排序键对应的列。new 直接用发布时间，
// 其余三种读 RankingService 维护的预计算列，保证翻页期间键稳定。
func (s Sort) keyColumn() string {
	switch s {
	case SortHot:
		return "hot_rank"
	case SortBest:
		return "best_rank"
	case SortControversial:
		return "controversy_rank"
	default:
		return "created_at"
	}
}

// keyOf 从行中取出排序键，编码进下一页游标
func (s Sort) keyOf(p *models.Post) float64 {
	switch s {
	case SortHot:
		return p.HotRank
	case SortBest:
		return p.BestRank
	case SortControversial:
		return p.ControversyRank
	default:
		return rank.NewKey(p.CreatedAt)
	}
}

// Query 一次信息流请求的全部参数
type Query struct {
	Scope     Scope
	Sort      Sort
	Community string // scope=community 时的社区名
	Username  string // scope=user 时的用户名
	Cursor    string // 上一页返回的游标，可为空或损坏（回退到第一页）
	Limit     int    // <=0 时取 PageSize
}

// Page 一页结果。NextCursor 在返回满页时给出（"可能还有更多"的启发式，
// 末页刚好满页时会多出一次空页请求，属于约定内行为）。
type Page struct {
	Items      []models.Post `json:"items"`
	NextCursor *string       `json:"next_cursor"`
}

// Get 信息流装配入口：解析范围 → 过滤 → 排序 → 游标续读 → 限页 → 个人状态标注。
// viewerID 为 nil 表示匿名访问：公开范围正常返回，个人字段保持 nil，也不做隐藏过滤。
func Get(viewerID *uint, q Query) (*Page, error) {
	if q.Scope.requiresViewer() && viewerID == nil {
		return nil, ErrUnauthorized
	}

	limit := q.Limit
	if limit <= 0 {
		limit = PageSize
	}

	tx := db.DB.Model(&models.Post{}).
		Select("posts.*").
		Preload("User").
		Preload("Community").
		Preload("Media")

	// 1. 范围过滤
	switch q.Scope {
	case ScopeAll:
		// 全站无过滤
	case ScopeHome:
		tx = tx.Where("posts.community_id IN (SELECT community_id FROM memberships WHERE user_id = ? AND member = ?)",
			*viewerID, true)
	case ScopeCommunity:
		var community models.Community
		if err := db.DB.Where("name = ?", q.Community).First(&community).Error; err != nil {
			return nil, fmt.Errorf("community %q: %w", q.Community, err)
		}
		tx = tx.Where("posts.community_id = ?", community.ID)
	case ScopeUser:
		var author models.User
		if err := db.DB.Where("username = ?", q.Username).First(&author).Error; err != nil {
			return nil, fmt.Errorf("user %q: %w", q.Username, err)
		}
		tx = tx.Where("posts.user_id = ?", author.ID)
	case ScopeSaved:
		tx = tx.Joins("JOIN user_post_relations rel ON rel.post_id = posts.id AND rel.user_id = ? AND rel.saved = ?",
			*viewerID, true)
	case ScopeHidden:
		tx = tx.Joins("JOIN user_post_relations rel ON rel.post_id = posts.id AND rel.user_id = ? AND rel.hidden = ?",
			*viewerID, true)
	case ScopeUpvoted:
		tx = tx.Joins("JOIN user_post_relations rel ON rel.post_id = posts.id AND rel.user_id = ? AND rel.vote = ?",
			*viewerID, models.VoteUp)
	case ScopeDownvoted:
		tx = tx.Joins("JOIN user_post_relations rel ON rel.post_id = posts.id AND rel.user_id = ? AND rel.vote = ?",
			*viewerID, models.VoteDown)
	default:
		return nil, fmt.Errorf("unknown scope %q", q.Scope)
	}

	// 2. 隐藏过滤：除了 hidden 范围本身，登录访问者看不到自己隐藏的帖子
	if viewerID != nil && q.Scope != ScopeHidden {
		tx = tx.Where("NOT EXISTS (SELECT 1 FROM user_post_relations h WHERE h.post_id = posts.id AND h.user_id = ? AND h.hidden = ?)",
			*viewerID, true)
	}

	// 3. 游标续读。损坏的游标按缺失处理，从第一页开始
	if cur, ok := cursor.Decode(q.Cursor); ok {
		tx = applyCursor(tx, q.Sort, cur)
	}

	// 4. 排序 + 限页。(键, id) 双列降序构成严格全序，分页才是确定性的
	col := q.Sort.keyColumn()
	tx = tx.Order(fmt.Sprintf("posts.%s DESC, posts.id DESC", col)).Limit(limit)

	var posts []models.Post
	if err := tx.Find(&posts).Error; err != nil {
		return nil, err
	}

	// 5. 标注访问者个人状态
	if err := AnnotatePosts(viewerID, posts); err != nil {
		return nil, err
	}

	page := &Page{Items: posts}
	if len(posts) == limit {
		last := &posts[len(posts)-1]
		next := cursor.Encode(cursor.Cursor{Key: q.Sort.keyOf(last), ID: last.ID})
		page.NextCursor = &next
	}

	return page, nil
}

// applyCursor 把游标翻译成"严格在续读点之后"的键集谓词
func applyCursor(tx *gorm.DB, sort Sort, cur cursor.Cursor) *gorm.DB {
	if sort == SortNew {
		t := time.UnixMicro(int64(cur.Key)).UTC()
		return tx.Where("posts.created_at < ? OR (posts.created_at = ? AND posts.id < ?)", t, t, cur.ID)
	}
	col := sort.keyColumn()
	return tx.Where(fmt.Sprintf("posts.%s < ? OR (posts.%s = ? AND posts.id < ?)", col, col), cur.Key, cur.Key, cur.ID)
}

// AnnotatePosts 批量填充访问者对每个帖子的投票/收藏/隐藏状态。
// 匿名访问者不查库，个人字段保持 nil。
func AnnotatePosts(viewerID *uint, posts []models.Post) error {
	if viewerID == nil || len(posts) == 0 {
		return nil
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	var relations []models.UserPostRelation
	if err := db.DB.Where("user_id = ? AND post_id IN ?", *viewerID, postIDs).
		Find(&relations).Error; err != nil {
		return err
	}

	relMap := make(map[uint]*models.UserPostRelation, len(relations))
	for i := range relations {
		relMap[relations[i].PostID] = &relations[i]
	}

	for i := range posts {
		vote, saved, hidden := models.VoteNone, false, false
		if rel, ok := relMap[posts[i].ID]; ok {
			vote, saved, hidden = rel.Vote, rel.Saved, rel.Hidden
		}
		v, s, h := vote, saved, hidden
		posts[i].ViewerVote = &v
		posts[i].ViewerSaved = &s
		posts[i].ViewerHidden = &h
	}

	return nil
}

// AnnotateComments 同 AnnotatePosts，作用于评论
func AnnotateComments(viewerID *uint, comments []models.Comment) error {
	if viewerID == nil || len(comments) == 0 {
		return nil
	}

	commentIDs := make([]uint, len(comments))
	for i, c := range comments {
		commentIDs[i] = c.ID
	}

	var relations []models.UserCommentRelation
	if err := db.DB.Where("user_id = ? AND comment_id IN ?", *viewerID, commentIDs).
		Find(&relations).Error; err != nil {
		return err
	}

	relMap := make(map[uint]*models.UserCommentRelation, len(relations))
	for i := range relations {
		relMap[relations[i].CommentID] = &relations[i]
	}

	for i := range comments {
		vote, saved := models.VoteNone, false
		if rel, ok := relMap[comments[i].ID]; ok {
			vote, saved = rel.Vote, rel.Saved
		}
		v, s := vote, saved
		comments[i].ViewerVote = &v
		comments[i].ViewerSaved = &s
	}

	return nil
}
