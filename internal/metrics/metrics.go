// Package metrics 暴露投票台账与反滥用相关的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VotesCast 按对象类型和结果统计成功的投票
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burrow",
		Name:      "votes_cast_total",
		Help:      "Successful vote ledger mutations by target kind and outcome.",
	}, []string{"kind", "outcome"})

	// VoteRetries 唯一约束冲突或条件更新落空后的重试次数
	VoteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "burrow",
		Name:      "vote_retries_total",
		Help:      "Vote transactions retried after a uniqueness conflict.",
	})

	// RecountFailures 冗余计数重算失败（投票本身已生效）
	RecountFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burrow",
		Name:      "vote_recount_failures_total",
		Help:      "Aggregate vote recounts that failed after a durable vote.",
	}, []string{"kind"})

	// RateLimited 被限流拒绝的请求
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burrow",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the identity rate limiter.",
	}, []string{"action"})

	// RateLimiterErrors redis 不可用时放行的次数
	RateLimiterErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "burrow",
		Name:      "rate_limiter_errors_total",
		Help:      "Rate limiter backend errors (requests were allowed).",
	})

	// TitleFetches 标题抓取结果
	TitleFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "burrow",
		Name:      "title_fetches_total",
		Help:      "Outbound title fetches by result.",
	}, []string{"result"})

	// RequestDuration HTTP 请求耗时
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "burrow",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status class.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
