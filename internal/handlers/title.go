package handlers

import (
	"context"
	"errors"
	"net/http"

	"burrow/internal/services"

	"github.com/gin-gonic/gin"
)

type TitleFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type TitleHandler struct {
	fetcher TitleFetcher
}

func NewTitleHandler(fetcher TitleFetcher) *TitleHandler {
	return &TitleHandler{fetcher: fetcher}
}

type fetchTitleRequest struct {
	URL string `json:"url" form:"url"`
}

// FetchTitle POST /api/fetch-title，始终返回 JSON
func (h *TitleHandler) FetchTitle(c *gin.Context) {
	var req fetchTitleRequest
	if err := c.ShouldBind(&req); err != nil {
		RenderError(c, http.StatusBadRequest, "URL is required")
		return
	}

	title, err := h.fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		code, message := titleStatus(err)
		if code == http.StatusInternalServerError {
			HandleError(c, err)
			return
		}
		RenderError(c, code, message)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": title})
}

func titleStatus(err error) (int, string) {
	if ve, ok := services.AsValidation(err); ok {
		return http.StatusBadRequest, ve.Message
	}
	switch {
	case errors.Is(err, services.ErrUpstreamStatus):
		return http.StatusBadGateway, "The site returned an error"
	case errors.Is(err, services.ErrNoTitle):
		return http.StatusNotFound, "No title found on that page"
	case errors.Is(err, services.ErrFetchTimeout):
		return http.StatusGatewayTimeout, "The site took too long to respond"
	}
	return http.StatusInternalServerError, ""
}
