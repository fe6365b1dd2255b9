package handlers

import (
	"context"
	"net/http"

	"burrow/internal/middleware"
	"burrow/internal/models"
	"burrow/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// AccountService 可选账号，和投票身份无关
type AccountService interface {
	Register(ctx context.Context, in services.CredentialsInput) (*models.User, error)
	Login(ctx context.Context, in services.CredentialsInput) (*models.User, error)
}

type AuthHandler struct {
	accounts AccountService
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// ShowAuth 登录和注册在同一页
func (h *AuthHandler) ShowAuth(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/settings")
		return
	}
	Render(c, http.StatusOK, "auth/auth.html", gin.H{"Title": "Account"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	h.authenticate(c, "register", h.accounts.Register)
}

func (h *AuthHandler) Login(c *gin.Context) {
	h.authenticate(c, "login", h.accounts.Login)
}

func (h *AuthHandler) authenticate(c *gin.Context, form string,
	fn func(context.Context, services.CredentialsInput) (*models.User, error)) {
	var in services.CredentialsInput
	if err := c.ShouldBind(&in); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form")
		return
	}

	user, err := fn(c.Request.Context(), in)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok {
			Render(c, http.StatusBadRequest, "auth/auth.html", gin.H{
				"Title": "Account",
				"Form":  form,
				"Error": ve.Message,
				"Input": ve.Input,
			})
			return
		}
		HandleError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserID, user.ID)
	if err := session.Save(); err != nil {
		HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete(middleware.SessionUserID)
	_ = session.Save()
	c.Redirect(http.StatusFound, "/")
}

// Settings 需要登录
func (h *AuthHandler) Settings(c *gin.Context) {
	Render(c, http.StatusOK, "auth/settings.html", gin.H{
		"Title": "Settings",
		"User":  middleware.CurrentUser(c),
	})
}
