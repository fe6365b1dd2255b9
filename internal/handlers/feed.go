package handlers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"burrow/internal/models"
	"burrow/internal/services"
	"burrow/internal/utils"

	"github.com/gin-gonic/gin"
)

// NewestLister 订阅源只需要最新帖子
type NewestLister interface {
	ListNewest(ctx context.Context, page int) (services.PostPage, error)
}

type FeedHandler struct {
	posts NewestLister
}

func NewFeedHandler(posts NewestLister) *FeedHandler {
	return &FeedHandler{posts: posts}
}

// RobotsTxt 隐藏服务不希望被收录
func (h *FeedHandler) RobotsTxt(c *gin.Context) {
	c.String(http.StatusOK, "User-agent: *\nDisallow: /\n")
}

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// RSSFeed 最新一页帖子的 RSS 2.0。
// 链接用请求的 Host，同一份程序可以同时挂在多个 onion 地址上。
func (h *FeedHandler) RSSFeed(c *gin.Context) {
	page, err := h.posts.ListNewest(c.Request.Context(), 1)
	if err != nil {
		HandleError(c, err)
		return
	}

	base := "http://" + c.Request.Host
	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:         "burrow",
			Link:          base + "/",
			Description:   "Newest posts",
			LastBuildDate: time.Now().Format(time.RFC1123Z),
		},
	}
	for _, p := range page.Posts {
		doc.Channel.Items = append(doc.Channel.Items, feedItem(base, p))
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", append([]byte(xml.Header), out...))
}

func feedItem(base string, p models.Post) rssItem {
	link := fmt.Sprintf("%s/post/%d", base, p.ID)
	desc := utils.Excerpt(p.Content, 300)
	if desc == "" {
		desc = p.URL
	}
	item := rssItem{
		Title:       p.Title,
		Link:        link,
		Description: desc,
		PubDate:     p.CreatedAt.Format(time.RFC1123Z),
		GUID:        link,
	}
	if p.Category != nil {
		item.Category = p.Category.Name
	}
	return item
}
