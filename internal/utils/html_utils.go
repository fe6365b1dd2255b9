package utils

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SecureHTML 图片替换为替代文本，不加载外部资源。
// 链接加上 rel，并按是否洋葱地址打上 class，模板据此提示离开匿名网络。
func SecureHTML(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(template.HTMLEscapeString(htmlStr))
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		alt, _ := s.Attr("alt")
		s.ReplaceWithHtml(template.HTMLEscapeString(alt))
	})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("rel", "nofollow noopener noreferrer")
		href, _ := s.Attr("href")
		if IsOnionURL(href) {
			s.AddClass("onion")
		} else if strings.HasPrefix(href, "http") {
			s.AddClass("clearnet")
		}
	})

	// goquery renders full document tags if missing, we just want the body content
	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}

	return template.HTML(html)
}

// IsOnionURL 主机名是否为 .onion
func IsOnionURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), ".onion")
}

// Excerpt Markdown 正文的纯文本摘要，超过 n 个字符截断
func Excerpt(source string, n int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(RenderMarkdown(source))))
	if err != nil {
		return ""
	}
	text := strings.Join(strings.Fields(doc.Text()), " ")

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
