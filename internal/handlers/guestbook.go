package handlers

import (
	"context"
	"net/http"

	"burrow/internal/middleware"
	"burrow/internal/models"
	"burrow/internal/services"

	"github.com/gin-gonic/gin"
)

type GuestbookService interface {
	Sign(ctx context.Context, in services.GuestbookInput) (*models.GuestbookEntry, error)
	Latest(ctx context.Context) ([]models.GuestbookEntry, error)
}

type GuestbookHandler struct {
	guestbook GuestbookService
}

func NewGuestbookHandler(guestbook GuestbookService) *GuestbookHandler {
	return &GuestbookHandler{guestbook: guestbook}
}

func (h *GuestbookHandler) Show(c *gin.Context) {
	h.render(c, http.StatusOK, gin.H{})
}

func (h *GuestbookHandler) render(c *gin.Context, code int, data gin.H) {
	entries, err := h.guestbook.Latest(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}
	if middleware.WantsJSON(c) && code == http.StatusOK {
		c.JSON(http.StatusOK, gin.H{"entries": entries})
		return
	}
	data["Title"] = "Guestbook"
	data["Active"] = "guestbook"
	data["Entries"] = entries
	Render(c, code, "guestbook.html", data)
}

func (h *GuestbookHandler) Sign(c *gin.Context) {
	var in services.GuestbookInput
	if err := c.ShouldBind(&in); err != nil {
		RenderError(c, http.StatusBadRequest, "Invalid form")
		return
	}

	entry, err := h.guestbook.Sign(c.Request.Context(), in)
	if err != nil {
		if ve, ok := services.AsValidation(err); ok && !middleware.WantsJSON(c) {
			h.render(c, http.StatusBadRequest, gin.H{"Error": ve.Message, "Input": ve.Input})
			return
		}
		HandleError(c, err)
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, entry)
		return
	}
	addFlash(c, "Thanks for signing the guestbook")
	c.Redirect(http.StatusFound, "/guestbook")
}
