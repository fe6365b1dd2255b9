package services

import (
	"context"
	"fmt"

	"burrow/internal/models"
)

// Target 投票对象
type Target struct {
	Kind models.TargetKind
	ID   uint
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}

// Tally 冗余计数
type Tally struct {
	Up   int `json:"upvotes"`
	Down int `json:"downvotes"`
}

// TallyStore 计数所需的存储操作
type TallyStore interface {
	// CountVotes 按方向统计 votes 表中该对象的行数
	CountVotes(ctx context.Context, target Target) (Tally, error)
	// SetTally 覆盖对象上的 upvotes/downvotes
	SetTally(ctx context.Context, target Target, tally Tally) error
}

// ScoreScheduler 帖子热度重算队列
type ScoreScheduler interface {
	ScheduleUpdate(postID uint)
}

// Counter 从台账全量重算冗余计数，不做增减，重复执行结果相同
type Counter struct {
	store  TallyStore
	scores ScoreScheduler
}

// NewCounter scores 可以为 nil
func NewCounter(store TallyStore, scores ScoreScheduler) *Counter {
	return &Counter{store: store, scores: scores}
}

// RefreshCounts 重算并写回 target 的 upvotes/downvotes
func (c *Counter) RefreshCounts(ctx context.Context, target Target) (Tally, error) {
	const op = "services.Counter.RefreshCounts"

	tally, err := c.store.CountVotes(ctx, target)
	if err != nil {
		return Tally{}, fmt.Errorf("%s: count %s: %w", op, target, err)
	}

	if err := c.store.SetTally(ctx, target, tally); err != nil {
		return Tally{}, fmt.Errorf("%s: update %s: %w", op, target, err)
	}

	if target.Kind == models.TargetPost && c.scores != nil {
		c.scores.ScheduleUpdate(target.ID)
	}

	return tally, nil
}
