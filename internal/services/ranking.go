package services

import (
	"sync"
	"time"

	"shallot/internal/db"
	"shallot/internal/logger"
	"shallot/internal/models"
	"shallot/internal/rank"
)

// RankingService 提供异步重算帖子排序键的服务。
// hot/best/controversy 三个排序键是预计算列，信息流查询直接按列排序，
// 这样翻页期间键保持稳定，键集游标才可靠。
type RankingService struct {
	queue   chan uint // 待更新的帖子 ID 队列
	pending map[uint]bool
	mu      sync.Mutex
}

var (
	rankingService *RankingService
	once           sync.Once
)

// GetRankingService 获取单例排名服务
func GetRankingService() *RankingService {
	once.Do(func() {
		rankingService = &RankingService{
			queue:   make(chan uint, 1000), // 缓冲队列，防止阻塞
			pending: make(map[uint]bool),
		}
		// 启动后台 worker
		go rankingService.worker()
	})
	return rankingService
}

// ScheduleUpdate 将帖子加入更新队列（异步）。
// 去重机制避免短时间内重复计算同一帖子。
func (s *RankingService) ScheduleUpdate(postID uint) {
	s.mu.Lock()
	if s.pending[postID] {
		// 已在队列中，跳过
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	// 非阻塞发送到队列
	select {
	case s.queue <- postID:
	default:
		// 队列满了，移除 pending 标记
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		logger.L().Warnf("排名更新队列已满，跳过帖子 %d", postID)
	}
}

// worker 后台处理队列中的更新请求
func (s *RankingService) worker() {
	// 批量处理：收集一批请求后统一处理
	batch := make([]uint, 0, 50)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= 50 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			// 定时处理剩余的
			if len(batch) > 0 {
				s.processBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *RankingService) processBatch(postIDs []uint) {
	for _, postID := range postIDs {
		s.updatePostRanks(postID)

		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
	}
}

// updatePostRanks 重算单个帖子的全部排序键
func (s *RankingService) updatePostRanks(postID uint) {
	var post models.Post
	if err := db.DB.First(&post, postID).Error; err != nil {
		logger.L().Warnf("更新排序键失败：帖子 %d 不存在", postID)
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"hot_rank":         rank.Hot(post.Ups, post.Downs, post.CreatedAt, now),
		"best_rank":        rank.Best(post.Ups, post.Downs),
		"controversy_rank": rank.Controversy(post.Ups, post.Downs),
	}

	if err := db.DB.Model(&models.Post{}).Where("id = ?", postID).UpdateColumns(updates).Error; err != nil {
		logger.L().Errorf("更新帖子 %d 排序键失败: %v", postID, err)
	}
}

// UpdatePostRanksSync 同步重算（用于发帖后立即生效的场景和测试）
func UpdatePostRanksSync(postID uint) {
	GetRankingService().updatePostRanks(postID)
}

// StartScheduledRankRefresh 启动定时刷新任务（每天凌晨 3 点执行）。
// hot 分会随时间自然衰减，没有新投票的帖子也需要定期重算。
func (s *RankingService) StartScheduledRankRefresh() {
	go func() {
		for {
			// 计算到下一个凌晨 3 点的时间
			now := time.Now()
			next := time.Date(now.Year(), now.Month(), now.Day(), 3, 0, 0, 0, now.Location())
			if now.After(next) {
				next = next.Add(24 * time.Hour)
			}
			time.Sleep(time.Until(next))

			logger.L().Info("开始定时刷新帖子排序键...")
			s.refreshActivePosts()
			logger.L().Info("定时刷新帖子排序键完成")
		}
	}()
}

// refreshActivePosts 刷新最近 7 天和当前 hot 分最高的 50 篇帖子（边遍历边去重）
func (s *RankingService) refreshActivePosts() {
	processed := make(map[uint]bool)
	count := 0

	// 1. 最近 7 天的帖子
	sevenDaysAgo := time.Now().AddDate(0, 0, -7)
	var recentPosts []models.Post
	db.DB.Where("created_at >= ?", sevenDaysAgo).Select("id").Find(&recentPosts)
	for _, p := range recentPosts {
		s.updatePostRanks(p.ID)
		processed[p.ID] = true
		count++
	}

	// 2. hot 分最高的 50 篇（跳过已处理的）
	var topPosts []models.Post
	db.DB.Order("hot_rank DESC").Limit(50).Select("id").Find(&topPosts)
	for _, p := range topPosts {
		if !processed[p.ID] {
			s.updatePostRanks(p.ID)
			count++
		}
	}

	logger.L().Infof("本次刷新 %d 篇帖子的排序键", count)
}
