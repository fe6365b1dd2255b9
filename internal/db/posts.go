package db

import (
	"context"
	"fmt"
	"sort"

	"burrow/internal/models"
	"burrow/internal/services"

	"gorm.io/gorm"
)

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("db.Store.CreatePost: %w", mapErr(err))
	}
	return nil
}

func (s *Store) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).Preload("Category").First(&post, id).Error; err != nil {
		return nil, fmt.Errorf("db.Store.PostByID: %w", mapErr(err))
	}
	return &post, nil
}

// ListPosts 返回当前页和总数
func (s *Store) ListPosts(ctx context.Context, q services.PostQuery) ([]models.Post, int64, error) {
	const op = "db.Store.ListPosts"

	scope := func() *gorm.DB {
		tx := s.db.WithContext(ctx).Model(&models.Post{})
		if q.CategoryID != nil {
			tx = tx.Where("category_id = ?", *q.CategoryID)
		}
		return tx
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	order := "created_at DESC, id DESC"
	switch q.Order {
	case services.OrderHot:
		order = "score DESC, created_at DESC"
	case services.OrderNet:
		order = "(upvotes - downvotes) DESC, created_at DESC"
	}

	var posts []models.Post
	err := scope().Preload("Category").
		Order(order).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.fillCommentCounts(s.db.WithContext(ctx), posts); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return posts, total, nil
}

func (s *Store) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, fmt.Errorf("db.Store.CategoryByID: %w", mapErr(err))
	}
	return &cat, nil
}

func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var cat models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&cat).Error; err != nil {
		return nil, fmt.Errorf("db.Store.CategoryBySlug: %w", mapErr(err))
	}
	return &cat, nil
}

// ListCategories 按帖子数降序，数量相同按名称
func (s *Store) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	const op = "db.Store.ListCategories"

	var cats []models.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&cats).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	type countResult struct {
		CategoryID uint
		Count      int
	}
	var results []countResult
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Select("category_id, COUNT(*) AS count").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	countMap := make(map[uint]int, len(results))
	for _, r := range results {
		countMap[r.CategoryID] = r.Count
	}
	for i := range cats {
		cats[i].PostCount = countMap[cats[i].ID]
	}

	sort.SliceStable(cats, func(i, j int) bool {
		return cats[i].PostCount > cats[j].PostCount
	})
	if limit > 0 && len(cats) > limit {
		cats = cats[:limit]
	}
	return cats, nil
}

// CommentsByPost 按时间正序，组树交给服务层
func (s *Store) CommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("db.Store.CommentsByPost: %w", err)
	}
	return comments, nil
}

// LatestComments 带上所属帖子，用于显示标题
func (s *Store) LatestComments(ctx context.Context, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.WithContext(ctx).
		Preload("Post").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("db.Store.LatestComments: %w", err)
	}
	return comments, nil
}

// SearchPosts 标题或正文模糊匹配，搜索引擎不可用时使用
func (s *Store) SearchPosts(ctx context.Context, query string, limit int) ([]models.Post, error) {
	const op = "db.Store.SearchPosts"

	pattern := "%" + escapeLike(query) + "%"
	var posts []models.Post
	err := s.db.WithContext(ctx).Preload("Category").
		Where("title ILIKE ? OR content ILIKE ?", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.fillCommentCounts(s.db.WithContext(ctx), posts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

// PostsByIDs 不保证顺序
func (s *Store) PostsByIDs(ctx context.Context, ids []uint) ([]models.Post, error) {
	const op = "db.Store.PostsByIDs"

	if len(ids) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := s.db.WithContext(ctx).Preload("Category").Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.fillCommentCounts(s.db.WithContext(ctx), posts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return posts, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
