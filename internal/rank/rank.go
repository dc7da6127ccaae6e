// Package rank 提供各排序模式的纯打分函数。
// 输入只有票数和时间，无 I/O、无错误分支，便于单独测试。
package rank

import (
	"math"
	"time"
)

type Config struct {
	Gravity        float64 // 时间重力 (1.5)
	WeightUpvote   float64 // 1.0
	WeightDownvote float64 // 1.0
	ScaleFactor    float64 // 放大系数 (100)
	WilsonZ        float64 // Wilson 置信参数 (1.96 ≈ 95%)
}

var DefaultConfig = Config{
	Gravity:        1.5,
	WeightUpvote:   1.0,
	WeightDownvote: 1.0,
	ScaleFactor:    100.0, // 让分数落在 0-100 区间
	WilsonZ:        1.96,
}

// Hot 热度分：净票数取对数平滑后除以时间衰减项。
// 票数固定时随年龄单调递减，越旧的帖子需要越多净票才能排到同样位置。
func Hot(ups, downs int, createdAt, now time.Time) float64 {
	hours := now.Sub(createdAt).Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(ups)*DefaultConfig.WeightUpvote -
		float64(downs)*DefaultConfig.WeightDownvote
	if weightedSum < 0 {
		weightedSum = 0 // 防止负数无法取对数
	}

	// log10(sum + 1) -> sum=0 时结果为 0
	logScore := math.Log10(weightedSum + 1)

	numerator := logScore * DefaultConfig.ScaleFactor

	// 时间衰减（分母），+2 避免新帖分母过小
	decay := math.Pow(hours+2, DefaultConfig.Gravity)

	return numerator / decay
}

// Best 质量分：Wilson 得分下界。
// 高参与且比例均衡的内容得分高；零票时定义为 0，不会除零。
func Best(ups, downs int) float64 {
	n := float64(ups + downs)
	if n == 0 {
		return 0
	}

	z := DefaultConfig.WilsonZ
	p := float64(ups) / n

	return (p + z*z/(2*n) - z*math.Sqrt((p*(1-p)+z*z/(4*n))/n)) / (1 + z*z/n)
}

// Controversy 争议分：必须两边都有票才算争议，
// 总量做底数、少数方占比做指数，参与越多且越均衡分越高。
func Controversy(ups, downs int) float64 {
	if ups == 0 || downs == 0 {
		return 0
	}

	magnitude := float64(ups + downs)
	balance := float64(downs) / float64(ups)
	if ups < downs {
		balance = float64(ups) / float64(downs)
	}

	return math.Pow(magnitude, balance)
}

// NewKey 时间序排序键。以微秒精度折算成 float64，
// 游标里可以和其他排序键共用同一个字段。
func NewKey(createdAt time.Time) float64 {
	return float64(createdAt.UnixMicro())
}
