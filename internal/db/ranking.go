package db

import (
	"context"
	"fmt"
	"time"

	"burrow/internal/models"
	"burrow/internal/services"
)

func (s *Store) PostStats(ctx context.Context, postID uint) (services.PostStats, error) {
	const op = "db.Store.PostStats"

	var post models.Post
	err := s.db.WithContext(ctx).
		Select("id, created_at, upvotes, downvotes").
		First(&post, postID).Error
	if err != nil {
		return services.PostStats{}, fmt.Errorf("%s: %w", op, mapErr(err))
	}

	var comments int64
	if err := s.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&comments).Error; err != nil {
		return services.PostStats{}, fmt.Errorf("%s: %w", op, err)
	}

	return services.PostStats{
		CreatedAt: post.CreatedAt,
		Upvotes:   post.Upvotes,
		Downvotes: post.Downvotes,
		Comments:  int(comments),
	}, nil
}

func (s *Store) UpdateScore(ctx context.Context, postID uint, score float64) error {
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("score", score).Error
	if err != nil {
		return fmt.Errorf("db.Store.UpdateScore: %w", err)
	}
	return nil
}

// HotCandidateIDs 近期帖子与当前高分帖子的并集
func (s *Store) HotCandidateIDs(ctx context.Context, since time.Time, top int) ([]uint, error) {
	const op = "db.Store.HotCandidateIDs"

	var recent []uint
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("created_at >= ?", since).
		Pluck("id", &recent).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var hot []uint
	if err := s.db.WithContext(ctx).Model(&models.Post{}).
		Order("score DESC").
		Limit(top).
		Pluck("id", &hot).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seen := make(map[uint]bool, len(recent)+len(hot))
	ids := make([]uint, 0, len(recent)+len(hot))
	for _, id := range append(recent, hot...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
