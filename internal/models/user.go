package models

import (
	"time"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID string    `gorm:"uniqueIndex;size:36;not null" json:"external_id"` // 身份提供方的 UUID
	Username   string    `gorm:"uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"index" json:"email"`
	Avatar     string    `gorm:"default:🧅" json:"avatar"` // emoji 头像
	Bio        string    `gorm:"size:200" json:"bio"`     // 个人简介
	Onions     int       `gorm:"default:0" json:"onions"` // 洋葱声望值
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	// 用户由身份提供方的 webhook 创建/更新/删除，本地不保存任何凭据
}
