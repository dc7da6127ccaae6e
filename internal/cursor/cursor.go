// Package cursor 实现信息流分页游标的编解码。
// 游标对客户端是不透明的 base64 字符串，只能原样回传。
package cursor

import (
	"encoding/base64"
	"encoding/json"
)

// Cursor 记录续读点：上一页最后一行的排序键和 ID。
// Key 的含义由排序模式决定（hot/best/controversy 为预计算分数，new 为微秒时间戳），
// ID 用于排序键相同时的去重兜底，保证严格全序。
type Cursor struct {
	Key float64 `json:"k"`
	ID  uint    `json:"i"`
}

// Encode 序列化为 URL 安全的 base64 字符串
func Encode(c Cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		// Cursor 只含数值字段，Marshal 不会失败
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode 反序列化游标。输入损坏时返回 ok=false 而不是报错，
// 调用方据此回退到第一页（fail closed）。
func Decode(s string) (Cursor, bool) {
	if s == "" {
		return Cursor{}, false
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, false
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, false
	}

	return c, true
}
