package models

import (
	"time"
)

// 投票状态取值。对应 Vote 字段：1 赞、-1 踩、0 未投票。
const (
	VoteUp   = 1
	VoteNone = 0
	VoteDown = -1
)

// UserPostRelation 用户对帖子的个人状态（投票/收藏/隐藏）。
// 首次互动时惰性创建，之后幂等更新，从不删除（重置为零值状态）。
// (user_id, post_id) 上的唯一索引保证每对至多一行。
type UserPostRelation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_post_rel" json:"user_id"`
	PostID    uint      `gorm:"not null;index;uniqueIndex:idx_user_post_rel" json:"post_id"`
	Vote      int       `gorm:"default:0" json:"vote"` // 1 / 0 / -1
	Saved     bool      `gorm:"default:false;index" json:"saved"`
	Hidden    bool      `gorm:"default:false;index" json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserCommentRelation 用户对评论的个人状态。评论没有隐藏语义。
type UserCommentRelation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_user_comment_rel" json:"user_id"`
	CommentID uint      `gorm:"not null;index;uniqueIndex:idx_user_comment_rel" json:"comment_id"`
	Vote      int       `gorm:"default:0" json:"vote"`
	Saved     bool      `gorm:"default:false" json:"saved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
