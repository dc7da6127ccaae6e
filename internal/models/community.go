package models

import (
	"time"
)

type Community struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;unique" json:"name"` // URL 安全的唯一名称
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Membership 用户与社区的关系（成员/版主/特别关注）
type Membership struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index;uniqueIndex:idx_user_community" json:"user_id"`
	User        User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CommunityID uint       `gorm:"not null;index;uniqueIndex:idx_user_community" json:"community_id"`
	Community   Community  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"community"`
	Member      bool       `gorm:"default:false;index" json:"member"`
	Moderator   bool       `gorm:"default:false" json:"moderator"`
	Favorited   bool       `gorm:"default:false" json:"favorited"`
	FavoritedAt *time.Time `json:"favorited_at"` // 用于个人侧边栏排序
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
