package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"burrow/internal/metrics"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/proxy"
)

var (
	// ErrUpstreamStatus 目标站点返回非 2xx
	ErrUpstreamStatus = errors.New("upstream returned an error status")
	// ErrNoTitle 页面里没有标题
	ErrNoTitle = errors.New("no title found")
	// ErrFetchTimeout 抓取超时
	ErrFetchTimeout = errors.New("title fetch timed out")
)

const maxTitlePageBytes = 2 << 20

// TitleFetcher 通过 Tor SOCKS 代理抓取页面标题，用于发帖时自动填充
type TitleFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewTitleFetcher proxyURL 为空时直连
func NewTitleFetcher(proxyURL string, timeout time.Duration) (*TitleFetcher, error) {
	transport := &http.Transport{
		Proxy:                 nil,
		MaxIdleConns:          10,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("services.NewTitleFetcher: parse proxy url: %w", err)
		}
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("services.NewTitleFetcher: %w", err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = cd.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	}

	return &TitleFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		timeout: timeout,
	}, nil
}

// Fetch 抓取 rawURL 的标题
func (f *TitleFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	input := map[string]string{"url": rawURL}
	if rawURL == "" {
		return "", invalid("url", "URL is required", input)
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", invalid("url", "Invalid URL", input)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", invalid("url", "Invalid URL", input)
	}
	// 和 Tor Browser 保持一致，避免被识别
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; rv:128.0) Gecko/20100101 Firefox/128.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			metrics.TitleFetches.WithLabelValues("timeout").Inc()
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, u.Host)
		}
		metrics.TitleFetches.WithLabelValues("error").Inc()
		return "", fmt.Errorf("services.TitleFetcher.Fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.TitleFetches.WithLabelValues("upstream_status").Inc()
		return "", fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTitlePageBytes))
	if err != nil {
		if isTimeout(err) {
			metrics.TitleFetches.WithLabelValues("timeout").Inc()
			return "", fmt.Errorf("%w: %s", ErrFetchTimeout, u.Host)
		}
		metrics.TitleFetches.WithLabelValues("error").Inc()
		return "", fmt.Errorf("services.TitleFetcher.Fetch: read body: %w", err)
	}

	title := ExtractTitle(body, u)
	if title == "" {
		metrics.TitleFetches.WithLabelValues("no_title").Inc()
		return "", ErrNoTitle
	}

	metrics.TitleFetches.WithLabelValues("ok").Inc()
	return title, nil
}

// ExtractTitle 先取 <title>，取不到再交给 readability
func ExtractTitle(body []byte, pageURL *url.URL) string {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if t := collapseSpace(doc.Find("title").First().Text()); t != "" {
			return t
		}
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return ""
	}
	return collapseSpace(article.Title)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
