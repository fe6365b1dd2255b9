package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"burrow/internal/utils"
)

// RankingStore 热度计算所需的存储操作
type RankingStore interface {
	// PostStats 帖子的发布时间、票数和评论数
	PostStats(ctx context.Context, postID uint) (PostStats, error)
	UpdateScore(ctx context.Context, postID uint, score float64) error
	// HotCandidateIDs 最近 since 内的帖子加上当前分数最高的 top 篇，已去重
	HotCandidateIDs(ctx context.Context, since time.Time, top int) ([]uint, error)
}

type PostStats struct {
	CreatedAt time.Time
	Upvotes   int
	Downvotes int
	Comments  int
}

const (
	rankingQueueSize = 1000
	rankingBatchSize = 50
	rankingInterval  = 500 * time.Millisecond
)

// RankingService 异步计算和更新帖子热度。
// 同一帖子在队列里只会出现一次，worker 攒批处理。
type RankingService struct {
	store   RankingStore
	queue   chan uint
	pending map[uint]bool
	mu      sync.Mutex

	// 每天定时全量刷新，零值表示不刷新
	refreshAt int

	started atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func NewRankingService(store RankingStore) *RankingService {
	return &RankingService{
		store:     store,
		queue:     make(chan uint, rankingQueueSize),
		pending:   make(map[uint]bool),
		refreshAt: 3,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start 启动后台 worker，ctx 取消或调用 Stop 时退出
func (s *RankingService) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.worker(ctx)
	if s.refreshAt > 0 {
		go s.scheduledRefresh(ctx)
	}
}

// Stop 处理完已攒的批次后退出
func (s *RankingService) Stop() {
	s.once.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

// ScheduleUpdate 将帖子加入更新队列（异步，不阻塞）
func (s *RankingService) ScheduleUpdate(postID uint) {
	s.mu.Lock()
	if s.pending[postID] {
		s.mu.Unlock()
		return
	}
	s.pending[postID] = true
	s.mu.Unlock()

	select {
	case s.queue <- postID:
	default:
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()
		slog.Warn("ranking queue full, dropping update", "post_id", postID)
	}
}

func (s *RankingService) worker(ctx context.Context) {
	defer close(s.done)

	batch := make([]uint, 0, rankingBatchSize)
	ticker := time.NewTicker(rankingInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			s.processBatch(context.WithoutCancel(ctx), batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case postID := <-s.queue:
			batch = append(batch, postID)
			if len(batch) >= rankingBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stop:
			s.drain(&batch)
			flush()
			return
		case <-ctx.Done():
			s.drain(&batch)
			flush()
			return
		}
	}
}

// drain 把队列里剩下的取出来
func (s *RankingService) drain(batch *[]uint) {
	for {
		select {
		case id := <-s.queue:
			*batch = append(*batch, id)
		default:
			return
		}
	}
}

func (s *RankingService) processBatch(ctx context.Context, postIDs []uint) {
	for _, postID := range postIDs {
		s.mu.Lock()
		delete(s.pending, postID)
		s.mu.Unlock()

		if err := s.UpdateNow(ctx, postID); err != nil {
			utils.Logger(ctx).Warn("update post score failed", "post_id", postID, "err", err)
		}
	}
}

// UpdateNow 同步计算并写回单个帖子的热度
func (s *RankingService) UpdateNow(ctx context.Context, postID uint) error {
	stats, err := s.store.PostStats(ctx, postID)
	if err != nil {
		return err
	}
	score := utils.CalculateScore(stats.CreatedAt, stats.Upvotes, stats.Downvotes, stats.Comments)
	return s.store.UpdateScore(ctx, postID, score)
}

// RefreshHot 重算最近 7 天和分数最高的 30 篇
func (s *RankingService) RefreshHot(ctx context.Context) int {
	ids, err := s.store.HotCandidateIDs(ctx, time.Now().AddDate(0, 0, -7), 30)
	if err != nil {
		utils.Logger(ctx).Warn("load hot posts failed", "err", err)
		return 0
	}

	n := 0
	for _, id := range ids {
		if err := s.UpdateNow(ctx, id); err != nil {
			utils.Logger(ctx).Warn("update post score failed", "post_id", id, "err", err)
			continue
		}
		n++
	}
	return n
}

// scheduledRefresh 每天 refreshAt 点全量刷新，热度会随时间衰减
func (s *RankingService) scheduledRefresh(ctx context.Context) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), s.refreshAt, 0, 0, 0, now.Location())
		if !now.Before(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			n := s.RefreshHot(ctx)
			slog.Info("scheduled score refresh done", "posts", n)
		case <-s.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
