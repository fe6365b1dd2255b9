package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"burrow/internal/middleware"
	"burrow/internal/models"
	"burrow/internal/services"
	"burrow/internal/utils"

	"github.com/gin-gonic/gin"
)

// PostService 帖子读写
type PostService interface {
	Create(ctx context.Context, in services.SubmitPostInput) (*models.Post, error)
	ListHot(ctx context.Context, page int) (services.PostPage, error)
	ListNewest(ctx context.Context, page int) (services.PostPage, error)
	ListPopular(ctx context.Context) ([]models.Post, error)
	ListByCategory(ctx context.Context, slug string, page int) (*models.Category, services.PostPage, error)
	Detail(ctx context.Context, id uint) (*services.PostDetail, error)
	LatestComments(ctx context.Context) ([]models.Comment, error)
	Categories(ctx context.Context) ([]models.Category, error)
}

type CommentService interface {
	Create(ctx context.Context, in services.CommentInput) (*models.Comment, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) ([]models.Post, error)
}

// Cache 列表页派生数据缓存
type Cache interface {
	Get(key string) interface{}
	Set(key string, data interface{})
	Purge()
}

const (
	cacheKeyCategories = "sidebar:categories"
	cacheKeyPopular    = "posts:popular"
)

type PostHandler struct {
	posts    PostService
	comments CommentService
	search   Searcher
	cache    Cache
}

// NewPostHandler cache 可以为 nil
func NewPostHandler(posts PostService, comments CommentService, search Searcher, cache Cache) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, search: search, cache: cache}
}

// categories 侧边栏分类，失败时返回空列表不影响主内容
func (h *PostHandler) categories(c *gin.Context) []models.Category {
	if cached, ok := h.cacheGet(cacheKeyCategories).([]models.Category); ok {
		return cached
	}
	cats, err := h.posts.Categories(c.Request.Context())
	if err != nil {
		utils.Logger(c.Request.Context()).Warn("load categories failed", "err", err)
		return nil
	}
	h.cacheSet(cacheKeyCategories, cats)
	return cats
}

func (h *PostHandler) cacheGet(key string) interface{} {
	if h.cache == nil {
		return nil
	}
	return h.cache.Get(key)
}

func (h *PostHandler) cacheSet(key string, data interface{}) {
	if h.cache != nil {
		h.cache.Set(key, data)
	}
}

func (h *PostHandler) purge() {
	if h.cache != nil {
		h.cache.Purge()
	}
}

func (h *PostHandler) renderList(c *gin.Context, page services.PostPage, data gin.H) {
	data["Posts"] = page.Posts
	data["CurrentPage"] = page.Page
	data["TotalPages"] = page.TotalPages
	data["Categories"] = h.categories(c)
	Render(c, http.StatusOK, "post/list.html", data)
}

// ListHot 首页，按热度
func (h *PostHandler) ListHot(c *gin.Context) {
	page, err := h.posts.ListHot(c.Request.Context(), pageParam(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	h.renderList(c, page, gin.H{"Title": "Hot", "Active": "hot"})
}

func (h *PostHandler) ListNew(c *gin.Context) {
	page, err := h.posts.ListNewest(c.Request.Context(), pageParam(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	h.renderList(c, page, gin.H{"Title": "New", "Active": "new"})
}

// ListPopular 热门窗口内按净票排序，结果缓存
func (h *PostHandler) ListPopular(c *gin.Context) {
	posts, ok := h.cacheGet(cacheKeyPopular).([]models.Post)
	if !ok {
		var err error
		posts, err = h.posts.ListPopular(c.Request.Context())
		if err != nil {
			HandleError(c, err)
			return
		}
		h.cacheSet(cacheKeyPopular, posts)
	}
	h.renderList(c, services.PostPage{Posts: posts, Page: 1, TotalPages: 1}, gin.H{"Title": "Popular", "Active": "popular"})
}

func (h *PostHandler) ListByCategory(c *gin.Context) {
	cat, page, err := h.posts.ListByCategory(c.Request.Context(), c.Param("category"), pageParam(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	h.renderList(c, page, gin.H{"Title": cat.Name, "Active": "category", "Category": cat})
}

func (h *PostHandler) Detail(c *gin.Context) {
	h.renderDetail(c, http.StatusOK, gin.H{})
}

func (h *PostHandler) renderDetail(c *gin.Context, code int, data gin.H) {
	detail, err := h.posts.Detail(c.Request.Context(), utils.ParseID(c.Param("id")))
	if err != nil {
		HandleError(c, err)
		return
	}

	if middleware.WantsJSON(c) && code == http.StatusOK {
		c.JSON(http.StatusOK, gin.H{"post": detail.Post, "comments": detail.Comments})
		return
	}

	data["Title"] = detail.Post.Title
	data["Post"] = detail.Post
	data["Comments"] = detail.Comments
	data["Categories"] = h.categories(c)
	Render(c, code, "post/detail.html", data)
}

// LatestComments 全站最新评论
func (h *PostHandler) LatestComments(c *gin.Context) {
	comments, err := h.posts.LatestComments(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	Render(c, http.StatusOK, "post/comments.html", gin.H{
		"Title":      "Comments",
		"Active":     "comments",
		"Comments":   comments,
		"Categories": h.categories(c),
	})
}

func (h *PostHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))

	posts, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		HandleError(c, err)
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"query": query, "posts": posts})
		return
	}
	Render(c, http.StatusOK, "post/search.html", gin.H{
		"Title": "Search",
		"Query": query,
		"Posts": posts,
	})
}

func (h *PostHandler) ShowSubmit(c *gin.Context) {
	Render(c, http.StatusOK, "post/submit.html", gin.H{
		"Title":      "Submit",
		"Active":     "submit",
		"Categories": h.categories(c),
		"Input":      map[string]string{"category_id": c.Query("category")},
	})
}

// Submit 校验失败时回显表单
func (h *PostHandler) Submit(c *gin.Context) {
	var in services.SubmitPostInput
	if err := c.ShouldBind(&in); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), in)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok && !middleware.WantsJSON(c) {
			Render(c, http.StatusBadRequest, "post/submit.html", gin.H{
				"Title":      "Submit",
				"Active":     "submit",
				"Categories": h.categories(c),
				"Error":      ve.Message,
				"Field":      ve.Field,
				"Input":      ve.Input,
			})
			return
		}
		HandleError(c, err)
		return
	}
	h.purge()

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, post)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/post/%d", post.ID))
}

// CreateComment 校验失败时在详情页回显
func (h *PostHandler) CreateComment(c *gin.Context) {
	postID := utils.ParseID(c.Param("id"))

	var in services.CommentInput
	if err := c.ShouldBind(&in); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form")
		return
	}
	in.PostID = postID

	comment, err := h.comments.Create(c.Request.Context(), in)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok && !middleware.WantsJSON(c) {
			h.renderDetail(c, http.StatusBadRequest, gin.H{
				"CommentError": ve.Message,
				"Input":        ve.Input,
			})
			return
		}
		HandleError(c, err)
		return
	}
	h.purge()

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, comment)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("/post/%d#comment-%d", postID, comment.ID))
}
