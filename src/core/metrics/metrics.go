package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 网关的 Prometheus 指标，由 /metrics 暴露
var (
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iprisk_checks_total",
			Help: "按结果统计的风险检查次数",
		},
		[]string{"outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "iprisk_upstream_duration_seconds",
			Help:    "调用外部服务的耗时（秒）",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "result"},
	)

	RiskLevels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "iprisk_risk_level",
			Help:    "返回的风险值分布",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	ImagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "iprisk_images_rejected_total",
			Help: "标注前被拒绝的上传图片数",
		},
		[]string{"reason"},
	)
)

// ObserveUpstream 记录一次上游调用的耗时，err 非空时结果记为 error
func ObserveUpstream(service string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UpstreamDuration.WithLabelValues(service, result).Observe(time.Since(start).Seconds())
}
