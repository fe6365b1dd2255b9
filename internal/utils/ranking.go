package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	Gravity        float64 // 时间重力 (1.5)
	WeightComment  float64 // 2.0
	WeightUpvote   float64 // 1.0
	WeightDownvote float64 // 1.5
	ScaleFactor    float64 // 放大系数 (100)
}

var DefaultConfig = RankConfig{
	Gravity:        1.5,
	WeightComment:  2.0,
	WeightUpvote:   1.0,
	WeightDownvote: 1.5,
	ScaleFactor:    100.0,
}

// CalculateScore 热度：对数平滑后的加权互动值，按发布时长衰减
func CalculateScore(t time.Time, up, down, comment int) float64 {
	return DefaultConfig.Score(time.Since(t), up, down, comment)
}

// Score 按给定的发布时长计算
func (c RankConfig) Score(age time.Duration, up, down, comment int) float64 {
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}

	weightedSum := float64(up)*c.WeightUpvote +
		float64(comment)*c.WeightComment -
		float64(down)*c.WeightDownvote

	// 防止负数无法取对数
	if weightedSum < 0 {
		weightedSum = 0
	}

	numerator := math.Log10(weightedSum+1) * c.ScaleFactor
	decay := math.Pow(hours+2, c.Gravity)

	return numerator / decay
}
