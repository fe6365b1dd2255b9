package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"burrow/internal/models"
	"burrow/internal/utils"
)

// PostOrder 列表排序方式
type PostOrder int

const (
	OrderNewest PostOrder = iota
	OrderHot
	OrderNet // up - down
)

// PostQuery 列表查询条件
type PostQuery struct {
	Order      PostOrder
	CategoryID *uint
	Limit      int
	Offset     int
}

// PostStore 帖子相关存储
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	PostByID(ctx context.Context, id uint) (*models.Post, error)
	ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error)
	CategoryByID(ctx context.Context, id uint) (*models.Category, error)
	CategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context, limit int) ([]models.Category, error)
	CommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error)
	LatestComments(ctx context.Context, limit int) ([]models.Comment, error)
}

// PostIndexer 搜索索引，可以为 nil
type PostIndexer interface {
	IndexPost(post models.Post)
}

const (
	PostsPerPage       = 30
	popularWindow      = 100
	popularLimit       = 50
	latestCommentLimit = 50
	sidebarCategories  = 20
)

// SubmitPostInput 发帖表单
type SubmitPostInput struct {
	Title      string `form:"title" validate:"required,max=300"`
	URL        string `form:"url" validate:"omitempty,max=2000,http_url"`
	Content    string `form:"content" validate:"max=10000"`
	CategoryID string `form:"category_id"`
}

func (in *SubmitPostInput) normalize(asciiOnly bool) {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Content = strings.TrimSpace(in.Content)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if asciiOnly {
		in.Title = strings.TrimSpace(utils.StripToASCII(in.Title))
		in.Content = strings.TrimSpace(utils.StripToASCII(in.Content))
	}
}

func (in SubmitPostInput) echo() map[string]string {
	return map[string]string{
		"title":       in.Title,
		"url":         in.URL,
		"content":     in.Content,
		"category_id": in.CategoryID,
	}
}

// PostPage 列表页数据
type PostPage struct {
	Posts      []models.Post
	Page       int
	TotalPages int
	Total      int64
}

// PostDetail 详情页数据
type PostDetail struct {
	Post     *models.Post
	Comments []ThreadedComment
}

type PostService struct {
	store     PostStore
	indexer   PostIndexer
	asciiOnly bool
}

func NewPostService(store PostStore, indexer PostIndexer, asciiOnly bool) *PostService {
	return &PostService{store: store, indexer: indexer, asciiOnly: asciiOnly}
}

// Create 校验并发帖
func (s *PostService) Create(ctx context.Context, in SubmitPostInput) (*models.Post, error) {
	const op = "services.PostService.Create"

	in.normalize(s.asciiOnly)
	input := in.echo()

	if err := validateStruct(in, input); err != nil {
		return nil, err
	}
	if in.URL == "" && in.Content == "" {
		return nil, invalid("content", "Please provide either a URL or text content", input)
	}

	post := &models.Post{
		Title:   in.Title,
		URL:     in.URL,
		Content: in.Content,
	}

	if in.CategoryID != "" {
		id := utils.ParseID(in.CategoryID)
		if id == 0 {
			return nil, invalid("category_id", "Invalid category selected", input)
		}
		cat, err := s.store.CategoryByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return nil, invalid("category_id", "Invalid category selected", input)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		post.CategoryID = &cat.ID
		post.Category = cat
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.indexer != nil {
		s.indexer.IndexPost(*post)
	}

	utils.Logger(ctx).Info("post created", "post_id", post.ID)
	return post, nil
}

// ListNewest 最新，分页
func (s *PostService) ListNewest(ctx context.Context, page int) (PostPage, error) {
	return s.list(ctx, PostQuery{Order: OrderNewest}, page)
}

// ListHot 按热度，分页
func (s *PostService) ListHot(ctx context.Context, page int) (PostPage, error) {
	return s.list(ctx, PostQuery{Order: OrderHot}, page)
}

// ListByCategory 分类下最新，未知 slug 返回 ErrNotFound
func (s *PostService) ListByCategory(ctx context.Context, slug string, page int) (*models.Category, PostPage, error) {
	cat, err := s.store.CategoryBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, PostPage{}, fmt.Errorf("services.PostService.ListByCategory: %w", err)
	}
	p, err := s.list(ctx, PostQuery{Order: OrderNewest, CategoryID: &cat.ID}, page)
	return cat, p, err
}

// ListPopular 最新 100 篇里按 up-down 取前 50
func (s *PostService) ListPopular(ctx context.Context) ([]models.Post, error) {
	const op = "services.PostService.ListPopular"

	posts, _, err := s.store.ListPosts(ctx, PostQuery{Order: OrderNewest, Limit: popularWindow})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sortByNet(posts)
	if len(posts) > popularLimit {
		posts = posts[:popularLimit]
	}
	return posts, nil
}

func (s *PostService) list(ctx context.Context, q PostQuery, page int) (PostPage, error) {
	if page < 1 {
		page = 1
	}
	q.Limit = PostsPerPage
	q.Offset = (page - 1) * PostsPerPage

	posts, total, err := s.store.ListPosts(ctx, q)
	if err != nil {
		return PostPage{}, fmt.Errorf("services.PostService.list: %w", err)
	}

	totalPages := int((total + PostsPerPage - 1) / PostsPerPage)
	if totalPages == 0 {
		totalPages = 1
	}
	return PostPage{Posts: posts, Page: page, TotalPages: totalPages, Total: total}, nil
}

// Detail 帖子及评论树
func (s *PostService) Detail(ctx context.Context, id uint) (*PostDetail, error) {
	const op = "services.PostService.Detail"

	if id == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	post, err := s.store.PostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	comments, err := s.store.CommentsByPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	post.CommentCount = len(comments)

	return &PostDetail{Post: post, Comments: BuildTree(comments)}, nil
}

// LatestComments 最近 50 条评论，带所属帖子
func (s *PostService) LatestComments(ctx context.Context) ([]models.Comment, error) {
	comments, err := s.store.LatestComments(ctx, latestCommentLimit)
	if err != nil {
		return nil, fmt.Errorf("services.PostService.LatestComments: %w", err)
	}
	return comments, nil
}

// Categories 侧边栏分类，带帖子数
func (s *PostService) Categories(ctx context.Context) ([]models.Category, error) {
	cats, err := s.store.ListCategories(ctx, sidebarCategories)
	if err != nil {
		return nil, fmt.Errorf("services.PostService.Categories: %w", err)
	}
	return cats, nil
}

func sortByNet(posts []models.Post) {
	// 稳定排序，净票相同保留时间先后
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Net() > posts[j].Net()
	})
}
