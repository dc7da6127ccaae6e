package services

import (
	"fmt"

	"gorm.io/gorm"

	"shallot/internal/db"
	"shallot/internal/models"
)

// boolToInt inline helper for delta math
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// voteDeltas 旧状态 → 新状态对应的计数器增量。
// 恒等于 指示函数之差：upDelta = [new=赞] - [old=赞]，downDelta 同理，
// 自转移（same→same）自然得到零增量。
func voteDeltas(old, new int) (upDelta, downDelta int) {
	upDelta = boolToInt(new == models.VoteUp) - boolToInt(old == models.VoteUp)
	downDelta = boolToInt(new == models.VoteDown) - boolToInt(old == models.VoteDown)
	return
}

func validVote(value int) bool {
	return value == models.VoteUp || value == models.VoteNone || value == models.VoteDown
}

// ApplyPostVote 投票状态迁移：计数器调整和状态行写入在同一事务内提交，
// 任何一步失败整体回滚，不会出现计数和状态不一致的"半票"。
// 返回更新后的帖子（含最新计数）和旧状态，旧状态供调用方结算声望。
func ApplyPostVote(userID uint, pid string, value int) (*models.Post, int, error) {
	if !validVote(value) {
		return nil, 0, fmt.Errorf("invalid vote value %d", value)
	}

	var post models.Post
	var oldVote int

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pid = ?", pid).First(&post).Error; err != nil {
			return fmt.Errorf("post %q: %w", pid, err)
		}

		// 惰性建立状态行：首次互动前不存在，(user, post) 至多一行
		var rel models.UserPostRelation
		if err := tx.Where("user_id = ? AND post_id = ?", userID, post.ID).First(&rel).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			rel = models.UserPostRelation{UserID: userID, PostID: post.ID}
		}

		oldVote = rel.Vote
		if oldVote == value {
			// 重复设置同一状态是幂等空操作
			return nil
		}

		upDelta, downDelta := voteDeltas(oldVote, value)
		updates := map[string]interface{}{}
		if upDelta != 0 {
			updates["ups"] = gorm.Expr("ups + ?", upDelta)
		}
		if downDelta != 0 {
			updates["downs"] = gorm.Expr("downs + ?", downDelta)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).UpdateColumns(updates).Error; err != nil {
				return err
			}
		}

		rel.Vote = value
		if err := tx.Save(&rel).Error; err != nil {
			return err
		}

		post.Ups += upDelta
		post.Downs += downDelta
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return &post, oldVote, nil
}

// ApplyCommentVote 同 ApplyPostVote，作用于评论
func ApplyCommentVote(userID uint, cid string, value int) (*models.Comment, int, error) {
	if !validVote(value) {
		return nil, 0, fmt.Errorf("invalid vote value %d", value)
	}

	var comment models.Comment
	var oldVote int

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cid = ?", cid).First(&comment).Error; err != nil {
			return fmt.Errorf("comment %q: %w", cid, err)
		}

		var rel models.UserCommentRelation
		if err := tx.Where("user_id = ? AND comment_id = ?", userID, comment.ID).First(&rel).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			rel = models.UserCommentRelation{UserID: userID, CommentID: comment.ID}
		}

		oldVote = rel.Vote
		if oldVote == value {
			return nil
		}

		upDelta, downDelta := voteDeltas(oldVote, value)
		updates := map[string]interface{}{}
		if upDelta != 0 {
			updates["ups"] = gorm.Expr("ups + ?", upDelta)
		}
		if downDelta != 0 {
			updates["downs"] = gorm.Expr("downs + ?", downDelta)
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Comment{}).Where("id = ?", comment.ID).UpdateColumns(updates).Error; err != nil {
				return err
			}
		}

		rel.Vote = value
		if err := tx.Save(&rel).Error; err != nil {
			return err
		}

		comment.Ups += upDelta
		comment.Downs += downDelta
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	return &comment, oldVote, nil
}

// TogglePostSave 收藏/取消收藏，返回切换后的状态
func TogglePostSave(userID uint, pid string) (*models.Post, bool, error) {
	var post models.Post
	var saved bool

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pid = ?", pid).First(&post).Error; err != nil {
			return fmt.Errorf("post %q: %w", pid, err)
		}

		var rel models.UserPostRelation
		if err := tx.Where("user_id = ? AND post_id = ?", userID, post.ID).First(&rel).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			rel = models.UserPostRelation{UserID: userID, PostID: post.ID}
		}

		rel.Saved = !rel.Saved
		saved = rel.Saved
		return tx.Save(&rel).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &post, saved, nil
}

// TogglePostHide 隐藏/取消隐藏。隐藏只是访问者个人的软隐藏，
// 帖子本身从不物理删除，其他用户照常可见。
func TogglePostHide(userID uint, pid string) (*models.Post, bool, error) {
	var post models.Post
	var hidden bool

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pid = ?", pid).First(&post).Error; err != nil {
			return fmt.Errorf("post %q: %w", pid, err)
		}

		var rel models.UserPostRelation
		if err := tx.Where("user_id = ? AND post_id = ?", userID, post.ID).First(&rel).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			rel = models.UserPostRelation{UserID: userID, PostID: post.ID}
		}

		rel.Hidden = !rel.Hidden
		hidden = rel.Hidden
		return tx.Save(&rel).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &post, hidden, nil
}

// ToggleCommentSave 收藏/取消收藏评论
func ToggleCommentSave(userID uint, cid string) (*models.Comment, bool, error) {
	var comment models.Comment
	var saved bool

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cid = ?", cid).First(&comment).Error; err != nil {
			return fmt.Errorf("comment %q: %w", cid, err)
		}

		var rel models.UserCommentRelation
		if err := tx.Where("user_id = ? AND comment_id = ?", userID, comment.ID).First(&rel).Error; err != nil {
			if err != gorm.ErrRecordNotFound {
				return err
			}
			rel = models.UserCommentRelation{UserID: userID, CommentID: comment.ID}
		}

		rel.Saved = !rel.Saved
		saved = rel.Saved
		return tx.Save(&rel).Error
	})
	if err != nil {
		return nil, false, err
	}

	return &comment, saved, nil
}
