package services

import (
	"gorm.io/gorm"

	"shallot/internal/db"
	"shallot/internal/models"
)

// 声望动作常量
const (
	ActionPostUpvoted      = "帖子获赞"
	ActionPostUnupvoted    = "帖子取消获赞"
	ActionPostDownvoted    = "帖子被踩"
	ActionPostUndownvoted  = "帖子取消被踩"
	ActionCommentUpvoted   = "评论获赞"
	ActionCommentDownvoted = "评论被踩"
	ActionPostSaved        = "帖子被收藏"
	ActionPostUnsaved      = "帖子取消收藏"
	ActionDownvoteOther    = "踩了别人"
	ActionCommunityJoined  = "加入社区"
	ActionCommunityLeft    = "退出社区"
)

// 声望变动值常量
const (
	OnionsPostUpvoted      = 1
	OnionsPostUnupvoted    = -1
	OnionsPostDownvoted    = -1
	OnionsPostUndownvoted  = 1
	OnionsCommentUpvoted   = 1
	OnionsCommentDownvoted = -1
	OnionsPostSaved        = 2
	OnionsPostUnsaved      = -2
	OnionsDownvoteOther    = -1
	OnionsCommunityJoined  = 1
	OnionsCommunityLeft    = -1
)

// AddOnions 使用事务调整洋葱声望并记录流水。
// 传入用户ID、变动值（正数增加，负数扣除）、动作描述。
func AddOnions(userID uint, amount int, action string) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 创建声望流水
		log := models.OnionLog{
			UserID: userID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Create(&log).Error; err != nil {
			return err
		}

		// 2. 更新用户声望余额
		if err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("onions", gorm.Expr("onions + ?", amount)).
			Error; err != nil {
			return err
		}

		return nil
	})
}

// AddOnionsAsync 异步调整声望（在 goroutine 中调用）
func AddOnionsAsync(userID uint, amount int, action string) {
	go func() {
		_ = AddOnions(userID, amount, action)
	}()
}

// SettleVoteOnions 按一次投票迁移给帖子作者结算声望。
// 只结算新旧状态的差值，重复投票（零增量）不产生流水。
func SettleVoteOnions(authorID, voterID uint, oldVote, newVote int, isPost bool) {
	if oldVote == newVote {
		return
	}

	// 自己给自己投票不计声望
	if authorID != voterID {
		switch {
		case newVote == models.VoteUp && oldVote != models.VoteUp:
			if isPost {
				AddOnionsAsync(authorID, OnionsPostUpvoted, ActionPostUpvoted)
			} else {
				AddOnionsAsync(authorID, OnionsCommentUpvoted, ActionCommentUpvoted)
			}
		case oldVote == models.VoteUp && newVote != models.VoteUp:
			AddOnionsAsync(authorID, OnionsPostUnupvoted, ActionPostUnupvoted)
		}
		switch {
		case newVote == models.VoteDown && oldVote != models.VoteDown:
			if isPost {
				AddOnionsAsync(authorID, OnionsPostDownvoted, ActionPostDownvoted)
			} else {
				AddOnionsAsync(authorID, OnionsCommentDownvoted, ActionCommentDownvoted)
			}
		case oldVote == models.VoteDown && newVote != models.VoteDown:
			AddOnionsAsync(authorID, OnionsPostUndownvoted, ActionPostUndownvoted)
		}
	}

	// 点踩者自己也扣分
	if newVote == models.VoteDown && authorID != voterID {
		AddOnionsAsync(voterID, OnionsDownvoteOther, ActionDownvoteOther)
	}
}
