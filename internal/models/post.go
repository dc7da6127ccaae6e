package models

import (
	"time"
)

type Post struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Pid          string      `gorm:"uniqueIndex;size:8;not null" json:"pid"`
	UserID       uint        `gorm:"not null;index" json:"user_id"`
	User         User        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	CommunityID  uint        `gorm:"not null;index" json:"community_id"`
	Community    Community   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"community"`
	Title        string      `gorm:"not null" json:"title"`
	Content      string      `gorm:"type:text" json:"content"` // Markdown 源文，可为空
	Media        []PostMedia `json:"media"`
	Ups          int         `gorm:"default:0" json:"ups"`
	Downs        int         `gorm:"default:0" json:"downs"`
	CommentCount int         `gorm:"default:0" json:"comment_count"`
	// 预计算的排序键，由 RankingService 异步维护
	HotRank         float64   `gorm:"default:0;index" json:"-"`
	BestRank        float64   `gorm:"default:0;index" json:"-"`
	ControversyRank float64   `gorm:"default:0;index" json:"-"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// 非数据库字段，查询后按当前访问者填充；匿名访问保持 nil
	ViewerVote   *int  `gorm:"-" json:"viewer_vote,omitempty"`
	ViewerSaved  *bool `gorm:"-" json:"viewer_saved,omitempty"`
	ViewerHidden *bool `gorm:"-" json:"viewer_hidden,omitempty"`
}

// PostMedia 帖子引用的媒体对象。文件本体在外部对象存储，
// 这里只保存 key 和可访问的 URL，从不解析文件内容。
type PostMedia struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	PostID   uint   `gorm:"not null;index" json:"post_id"`
	Key      string `gorm:"not null" json:"key"`
	URL      string `gorm:"not null" json:"url"`
	Position int    `gorm:"default:0" json:"position"`
}

func (PostMedia) TableName() string {
	return "post_media"
}
