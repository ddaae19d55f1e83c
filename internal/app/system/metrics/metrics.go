// Package metrics holds the service's Prometheus collectors. A Metrics value
// is built once at startup and passed to the features that record into it.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	MessagesSent       *prometheus.CounterVec // label: kind (text|image|video)
	FollowToggles      *prometheus.CounterVec // label: action (follow|unfollow)
	LikeToggles        *prometheus.CounterVec // label: kind (short|post)
	CommentsAdded      *prometheus.CounterVec // label: kind
	LiveSubscriptions  prometheus.Gauge
	PreviewUpdateFails prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clanhub",
			Name:      "messages_sent_total",
			Help:      "Chat messages stored, by kind.",
		}, []string{"kind"}),
		FollowToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clanhub",
			Name:      "follow_toggles_total",
			Help:      "Follow edges created or removed.",
		}, []string{"action"}),
		LikeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clanhub",
			Name:      "like_toggles_total",
			Help:      "Like toggles, by content kind.",
		}, []string{"kind"}),
		CommentsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clanhub",
			Name:      "comments_added_total",
			Help:      "Comments appended, by content kind.",
		}, []string{"kind"}),
		LiveSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clanhub",
			Name:      "live_subscriptions",
			Help:      "Open change-stream subscriptions.",
		}),
		PreviewUpdateFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clanhub",
			Name:      "conversation_preview_update_failures_total",
			Help:      "Messages stored whose conversation preview could not be updated.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesSent,
		m.FollowToggles,
		m.LikeToggles,
		m.CommentsAdded,
		m.LiveSubscriptions,
		m.PreviewUpdateFails,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
