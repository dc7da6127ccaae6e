package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeCommentPost  NotificationType = "comment_post"
	NotificationTypeReplyComment NotificationType = "reply_comment"
)

type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UserID     uint             `gorm:"not null;index" json:"user_id"` // Receiver
	User       User             `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ActorID    *uint            `gorm:"index" json:"actor_id"` // Sender
	Actor      User             `gorm:"foreignKey:ActorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"actor"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	PostPid    string           `gorm:"size:8" json:"post_pid"`
	CommentCid string           `gorm:"size:8" json:"comment_cid"`
	Body       string           `gorm:"type:text" json:"body"`
	IsRead     bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
}
