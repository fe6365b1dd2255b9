package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"burrow/internal/models"
)

// memContent 内存版内容存储，覆盖帖子/评论/留言/账号
type memContent struct {
	mu         sync.Mutex
	now        time.Time
	posts      []models.Post
	comments   []models.Comment
	categories []models.Category
	guestbook  []models.GuestbookEntry
	users      []models.User
	err        error
}

func newMemContent() *memContent {
	return &memContent{
		now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		categories: []models.Category{
			{ID: 1, Name: "Technology", Slug: "technology"},
			{ID: 2, Name: "Privacy", Slug: "privacy"},
		},
	}
}

func (m *memContent) tick() time.Time {
	m.now = m.now.Add(time.Minute)
	return m.now
}

func (m *memContent) CreatePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	post.ID = uint(len(m.posts) + 1)
	post.CreatedAt = m.tick()
	m.posts = append(m.posts, *post)
	return nil
}

func (m *memContent) PostByID(ctx context.Context, id uint) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memContent) ListPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}

	var out []models.Post
	for _, p := range m.posts {
		if q.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *q.CategoryID) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.Order == OrderHot && out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := int64(len(out))
	if q.Offset >= len(out) {
		return []models.Post{}, total, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func (m *memContent) CategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	for _, c := range m.categories {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memContent) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	for _, c := range m.categories {
		if c.Slug == slug {
			found := c
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memContent) ListCategories(ctx context.Context, limit int) ([]models.Category, error) {
	return m.categories, nil
}

func (m *memContent) CommentsByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContent) LatestComments(ctx context.Context, limit int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Comment, 0, len(m.comments))
	for i := len(m.comments) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.comments[i])
	}
	return out, nil
}

func (m *memContent) CommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.comments {
		if c.ID == id {
			found := c
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memContent) CreateComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment.ID = uint(len(m.comments) + 1)
	comment.CreatedAt = m.tick()
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *memContent) CreateGuestbookEntry(ctx context.Context, entry *models.GuestbookEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uint(len(m.guestbook) + 1)
	entry.CreatedAt = m.tick()
	m.guestbook = append(m.guestbook, *entry)
	return nil
}

func (m *memContent) ListGuestbook(ctx context.Context, limit int) ([]models.GuestbookEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GuestbookEntry, 0, limit)
	for i := len(m.guestbook) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.guestbook[i])
	}
	return out, nil
}

func (m *memContent) CreateUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return ErrConflict
		}
	}
	user.ID = uint(len(m.users) + 1)
	user.CreatedAt = m.tick()
	m.users = append(m.users, *user)
	return nil
}

func (m *memContent) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memContent) UserByID(ctx context.Context, id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

type indexRecorder struct {
	posts []models.Post
}

func (r *indexRecorder) IndexPost(post models.Post) {
	r.posts = append(r.posts, post)
}
