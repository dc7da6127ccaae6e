package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHotDecaysWithAge(t *testing.T) {
	now := time.Now()
	newer := Hot(10, 0, now.Add(-1*time.Hour), now)
	older := Hot(10, 0, now.Add(-24*time.Hour), now)
	oldest := Hot(10, 0, now.Add(-72*time.Hour), now)

	// 净票数相同，越早发布的帖子分数必须越低
	assert.Greater(t, newer, older)
	assert.Greater(t, older, oldest)
}

func TestHotMonotonicInVotes(t *testing.T) {
	now := time.Now()
	created := now.Add(-6 * time.Hour)

	assert.Greater(t, Hot(20, 0, created, now), Hot(10, 0, created, now))
	assert.GreaterOrEqual(t, Hot(10, 0, created, now), Hot(10, 5, created, now))
}

func TestHotDefinedAtZeroVotes(t *testing.T) {
	now := time.Now()
	got := Hot(0, 0, now.Add(-3*time.Hour), now)
	assert.Equal(t, 0.0, got)

	// 踩多于赞也不应该出现 NaN/Inf
	got = Hot(1, 50, now.Add(-3*time.Hour), now)
	assert.False(t, got != got, "score must not be NaN")
	assert.Equal(t, 0.0, got)
}

func TestBestMonotonic(t *testing.T) {
	// 赞越多分越高
	assert.Greater(t, Best(50, 10), Best(40, 10))
	// 踩越多分越低
	assert.Less(t, Best(50, 20), Best(50, 10))
	// 同比例下参与越多越可信
	assert.Greater(t, Best(100, 100), Best(1, 1))
}

func TestBestDefinedAtZeroVotes(t *testing.T) {
	assert.Equal(t, 0.0, Best(0, 0))
}

func TestControversy(t *testing.T) {
	// 单边投票没有争议
	assert.Equal(t, 0.0, Controversy(100, 0))
	assert.Equal(t, 0.0, Controversy(0, 100))
	assert.Equal(t, 0.0, Controversy(0, 0))

	// 均衡且量大 > 均衡但量小
	assert.Greater(t, Controversy(50, 50), Controversy(5, 5))
	// 同等总量下，越均衡越有争议
	assert.Greater(t, Controversy(50, 50), Controversy(90, 10))
}

func TestNewKeyOrdersByTime(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Second)
	assert.Greater(t, NewKey(later), NewKey(earlier))
}
