package prometheus

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dardanova/dardanova/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled = config.GenFlag[bool]("integrations.prometheus.enabled", false, "Enable Prometheus metrics")
	port    = config.GenFlag[int]("integrations.prometheus.port", 8071, "Prometheus metrics port")
)

var (
	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dardanova_post_views_total",
		Help: "Number of counted blog post views",
	})
	ContactMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dardanova_contact_messages_total",
		Help: "Number of contact form submissions, by result",
	}, []string{"result"})
	SignIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dardanova_sign_ins_total",
		Help: "Number of admin sign in attempts, by result",
	}, []string{"result"})
)

func InitMetrics() {
	if !enabled.Value() {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port.Value()), mux); err != nil {
			slog.Error("Error with Prometheus metrics", slog.Any("err", err))
		}
	}()
}
