package models

import (
	"time"
)

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Cid       string    `gorm:"uniqueIndex;size:8;not null" json:"cid"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      Post      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"post"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // 顶层评论为 NULL
	Parent    *Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"parent"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Ups       int       `gorm:"default:0" json:"ups"`
	Downs     int       `gorm:"default:0" json:"downs"`
	CreatedAt time.Time `json:"created_at"`

	// 非数据库字段，按当前访问者填充
	ViewerVote  *int  `gorm:"-" json:"viewer_vote,omitempty"`
	ViewerSaved *bool `gorm:"-" json:"viewer_saved,omitempty"`
}
