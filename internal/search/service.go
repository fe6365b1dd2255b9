// Package search 提供帖子搜索：优先 Meilisearch，不可用时回退到数据库模糊匹配。
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"burrow/internal/models"
)

const defaultLimit = 30

// Index 外部搜索引擎，可以为 nil
type Index interface {
	Healthy() bool
	SearchIDs(query string, limit int) ([]uint, error)
	IndexPosts(records []PostRecord) error
}

// Store 回退查询和按 ID 取帖子
type Store interface {
	SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error)
	PostsByIDs(ctx context.Context, ids []uint) ([]models.Post, error)
}

type Service struct {
	index Index
	store Store
}

// NewService index 为 nil 时只用数据库
func NewService(index Index, store Store) *Service {
	return &Service{index: index, store: store}
}

// Search 空查询返回空结果
func (s *Service) Search(ctx context.Context, query string) ([]models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Post{}, nil
	}

	if s.index != nil && s.index.Healthy() {
		ids, err := s.index.SearchIDs(query, defaultLimit)
		if err == nil {
			return s.byIDs(ctx, ids)
		}
		slog.Warn("search: meilisearch error, falling back to database", "err", err)
	}

	posts, err := s.store.SearchPosts(ctx, query, defaultLimit)
	if err != nil {
		return nil, fmt.Errorf("search.Service.Search: %w", err)
	}
	return posts, nil
}

// byIDs 保持索引给出的相关度顺序
func (s *Service) byIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	posts, err := s.store.PostsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("search.Service.byIDs: %w", err)
	}

	byID := make(map[uint]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// IndexPost 异步写入索引，失败只记日志
func (s *Service) IndexPost(post models.Post) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	rec := PostRecord{
		ID:        post.ID,
		Title:     post.Title,
		Content:   post.Content,
		URL:       post.URL,
		CreatedAt: post.CreatedAt.Unix(),
	}
	go func() {
		if err := s.index.IndexPosts([]PostRecord{rec}); err != nil {
			slog.Warn("search: index post failed", "post_id", rec.ID, "err", err)
		}
	}()
}
