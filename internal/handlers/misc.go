package handlers

import (
	"context"
	"net/http"
	"time"

	"burrow/internal/identity"
	"burrow/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Pinger 数据库连通性
type Pinger interface {
	PingContext(ctx context.Context) error
}

type MiscHandler struct {
	db Pinger
}

func NewMiscHandler(db Pinger) *MiscHandler {
	return &MiscHandler{db: db}
}

// Raw 展示本次请求推导出的身份信号，只用于排查，不写库
func (h *MiscHandler) Raw(c *gin.Context) {
	id := middleware.GetIdentity(c)
	data := gin.H{
		"peer":        identity.PeerAddress(c.Request.RemoteAddr),
		"address":     id.Address,
		"fingerprint": identity.Short(id.Fingerprint),
	}
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, data)
		return
	}
	data["Title"] = "Connection info"
	Render(c, http.StatusOK, "raw.html", data)
}

// Theme 切换明暗主题，保存在 session
func (h *MiscHandler) Theme(c *gin.Context) {
	theme := c.PostForm("theme")
	if theme != themeDark {
		theme = themeLight
	}
	session := sessions.Default(c)
	session.Set(sessionTheme, theme)
	_ = session.Save()
	redirectBack(c)
}

func (h *MiscHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
