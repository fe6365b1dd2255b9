package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"burrow/internal/config"
	"burrow/internal/db"
	"burrow/internal/handlers"
	"burrow/internal/identity"
	"burrow/internal/middleware"
	"burrow/internal/router"
	"burrow/internal/search"
	"burrow/internal/services"
	"burrow/internal/utils"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment")
	}

	cfg := config.MustLoad("")
	logger := setupLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Open(cfg.DB.URL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("close database", "err", err)
		}
	}()
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	store := db.NewStore(gdb)

	scheme, err := identity.ParseScheme(cfg.Identity.Scheme)
	if err != nil {
		return err
	}
	resolver := identity.NewResolver(cfg.Identity.Salt, scheme, cfg.Identity.TrustProxyHeaders)

	// 限流依赖 redis，未配置时不限流
	var limiter *services.RateLimiter
	if cfg.RateLimit.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		limiter = services.NewRateLimiter(rdb, cfg.RateLimit.Burst, cfg.RateLimit.RefillPerMinute)
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	var index search.Index
	if cfg.Search.MeiliURL != "" {
		m := search.NewMeili(cfg.Search.MeiliURL, cfg.Search.MeiliAPIKey)
		defer m.Close()
		index = m
	}
	searchSvc := search.NewService(index, store)

	cache, err := utils.NewPageCache(cfg.Cache.Size, cfg.Cache.TTL)
	if err != nil {
		return err
	}

	ranking := services.NewRankingService(store)
	ranking.Start(ctx)
	defer ranking.Stop()

	fetcher, err := services.NewTitleFetcher(cfg.Tor.ProxyURL, cfg.Tor.TitleFetchTimeout)
	if err != nil {
		return err
	}

	counter := services.NewCounter(store, ranking)
	ledger := services.NewVoteLedger(store, counter)
	posts := services.NewPostService(store, searchSvc, cfg.Content.ASCIIOnly)
	comments := services.NewCommentService(store, ranking, cfg.Content.MaxCommentDepth, cfg.Content.ASCIIOnly)
	guestbook := services.NewGuestbookService(store, cfg.Content.ASCIIOnly)
	accounts := services.NewAccountService(store)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ResolveIdentity(resolver),
		middleware.Logging(logger),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
	)

	// session 只存主题、flash 和可选账号 ID
	sessionStore := cookie.NewStore([]byte(cfg.Session.Secret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	r.Use(sessions.Sessions("burrow_session", sessionStore))
	r.Use(middleware.LoadUser(accounts))

	r.HTMLRender = loadTemplates(cfg.HTTP.TemplatesDir)
	r.Static("/static", cfg.HTTP.StaticDir)

	router.RegisterRoutes(r, router.Handlers{
		Posts:     handlers.NewPostHandler(posts, comments, searchSvc, cache),
		Votes:     handlers.NewVoteHandler(ledger, scheme, cache),
		Guestbook: handlers.NewGuestbookHandler(guestbook),
		Auth:      handlers.NewAuthHandler(accounts),
		Title:     handlers.NewTitleHandler(fetcher),
		Misc:      handlers.NewMiscHandler(sqlDB),
		Feed:      handlers.NewFeedHandler(posts),
	}, router.Limits{Limiter: limiter, Scheme: scheme})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("burrow server starting", "addr", cfg.HTTP.Addr, "identity_scheme", scheme)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	// 其余资源由 defer 按逆序关闭：排名 worker、搜索、redis、数据库
	return nil
}

func setupLogger(env string) *slog.Logger {
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func loadTemplates(templatesDir string) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}

	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, view)
		return files
	}

	for _, name := range handlers.Views {
		r.AddFromFilesFuncs(name, funcMap(), assemble(filepath.Join(templatesDir, "views", name))...)
	}
	return r
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"timeAgo":  timeAgo,
		"markdown": utils.RenderMarkdown,
		"excerpt":  utils.Excerpt,
		"isOnion":  utils.IsOnionURL,
		"host": func(raw string) string {
			u, err := url.Parse(raw)
			if err != nil {
				return ""
			}
			return u.Hostname()
		},
		"urlquery": url.QueryEscape,
	}
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
