package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"burrow/internal/middleware"
	"burrow/internal/services"
	"burrow/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionTheme = "theme"
	themeLight   = "light"
	themeDark    = "dark"
)

// Views 所有页面模板，main 按此列表注册
var Views = []string{
	"post/list.html",
	"post/detail.html",
	"post/submit.html",
	"post/comments.html",
	"post/search.html",
	"guestbook.html",
	"auth/auth.html",
	"auth/settings.html",
	"raw.html",
	"error.html",
}

// Render helper to inject common variables like 'current user'
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}

	session := sessions.Default(c)
	theme, _ := session.Get(sessionTheme).(string)
	if theme == "" {
		theme = themeLight
	}
	obj["Theme"] = theme

	// flash 只显示一次
	if flashes := session.Flashes(); len(flashes) > 0 {
		obj["Flashes"] = flashes
		_ = session.Save()
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// RenderError HTML 客户端渲染错误页，API 客户端返回 JSON
func RenderError(c *gin.Context, code int, message string) {
	renderError(c, code, message, nil)
}

// renderError input 为校验失败时提交的表单值，原样回显
func renderError(c *gin.Context, code int, message string, input map[string]string) {
	if middleware.WantsJSON(c) {
		c.AbortWithStatusJSON(code, middleware.ErrorResponse{Error: middleware.APIError{
			Code:      errorCode(code),
			Message:   message,
			RequestID: middleware.GetRequestID(c),
			Input:     input,
		}})
		return
	}
	Render(c, code, "error.html", gin.H{"Error": message, "Title": http.StatusText(code), "Input": input})
	c.Abort()
}

// HandleError 把服务层错误映射为 HTTP 状态。
// 校验错误的文案可以展示，其余错误只给通用提示。
func HandleError(c *gin.Context, err error) {
	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		utils.Logger(c.Request.Context()).Error("request failed", "path", c.Request.URL.Path, "err", err)
	}
	_ = c.Error(err)

	var input map[string]string
	if ve, ok := services.AsValidation(err); ok {
		input = ve.Input
	}
	renderError(c, code, message, input)
}

func statusFor(err error) (int, string) {
	if ve, ok := services.AsValidation(err); ok {
		return http.StatusBadRequest, ve.Message
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, slow down"
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "Invalid input"
	}
	return http.StatusInternalServerError, "Something went wrong, please try again"
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusBadGateway:
		return "upstream"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	return "internal"
}

// redirectBack 回到来源页面。只取 Referer 的 path 和 query，不会跳到站外。
func redirectBack(c *gin.Context) {
	c.Redirect(http.StatusFound, refererPath(c.GetHeader("Referer")))
}

func refererPath(referer string) string {
	u, err := url.Parse(referer)
	if err != nil || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func addFlash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	_ = session.Save()
}

// pageParam 非法或缺失时为 1
func pageParam(c *gin.Context) int {
	page := int(utils.ParseID(c.Query("page")))
	if page < 1 {
		return 1
	}
	return page
}
