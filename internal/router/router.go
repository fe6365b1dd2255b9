package router

import (
	"net/http"

	"burrow/internal/handlers"
	"burrow/internal/identity"
	"burrow/internal/metrics"
	"burrow/internal/middleware"
	"burrow/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers 路由用到的全部 handler
type Handlers struct {
	Posts     *handlers.PostHandler
	Votes     *handlers.VoteHandler
	Guestbook *handlers.GuestbookHandler
	Auth      *handlers.AuthHandler
	Title     *handlers.TitleHandler
	Misc      *handlers.MiscHandler
	Feed      *handlers.FeedHandler
}

// Limits 写操作限流
type Limits struct {
	Limiter *services.RateLimiter // nil 表示不限流
	Scheme  identity.Scheme
}

func RegisterRoutes(r *gin.Engine, h Handlers, limits Limits) {
	limit := func(action string) gin.HandlerFunc {
		return middleware.RateLimit(limits.Limiter, limits.Scheme, action)
	}

	// 公共页面
	r.GET("/", h.Posts.ListHot)                     // 首页 - 热度
	r.GET("/new", h.Posts.ListNew)                  // 最新
	r.GET("/popular", h.Posts.ListPopular)          // 净票最高
	r.GET("/s/:category", h.Posts.ListByCategory)   // 分类
	r.GET("/post/:id", h.Posts.Detail)              // 帖子详情与评论树
	r.GET("/comments", h.Posts.LatestComments)      // 最新评论
	r.GET("/search", h.Posts.Search)                // 搜索
	r.GET("/submit", h.Posts.ShowSubmit)            // 发帖页面
	r.GET("/guestbook", h.Guestbook.Show)           // 留言板
	r.GET("/raw", h.Misc.Raw)                       // 身份信号排查
	r.GET("/healthz", h.Misc.Healthz)               // 健康检查
	r.GET("/metrics", gin.WrapH(metrics.Handler())) // prometheus
	r.GET("/feed.xml", h.Feed.RSSFeed)              // RSS
	r.GET("/robots.txt", h.Feed.RobotsTxt)          // 禁止收录

	// 写操作，按身份限流
	r.POST("/submit", limit("submit"), h.Posts.Submit)
	r.POST("/post/:id/comment", limit("comment"), h.Posts.CreateComment)
	r.POST("/post/:id/upvote", limit("vote"), h.Votes.UpvotePost)
	r.POST("/post/:id/downvote", limit("vote"), h.Votes.DownvotePost)
	r.POST("/comment/:id/upvote", limit("vote"), h.Votes.UpvoteComment)
	r.POST("/comment/:id/downvote", limit("vote"), h.Votes.DownvoteComment)
	r.POST("/guestbook", limit("guestbook"), h.Guestbook.Sign)
	r.POST("/theme", h.Misc.Theme)
	r.POST("/api/fetch-title", limit("fetch_title"), h.Title.FetchTitle)

	// 可选账号
	r.GET("/auth", h.Auth.ShowAuth)
	r.POST("/auth/login", limit("login"), h.Auth.Login)
	r.POST("/auth/register", limit("register"), h.Auth.Register)
	r.POST("/auth/logout", h.Auth.Logout)
	r.GET("/settings", middleware.AuthRequired(), h.Auth.Settings)

	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, http.StatusNotFound, "Page not found")
	})
}
