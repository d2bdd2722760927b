package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	installs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commitview",
		Name:      "view_installs_total",
		Help:      "View installs by result.",
	}, []string{"result"})

	liveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "commitview",
		Name:      "live_views",
		Help:      "View handles currently held by viewers.",
	})

	liveViewers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "commitview",
		Name:      "live_viewers",
		Help:      "Viewers not yet deleted, across documents.",
	})

	renders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commitview",
		Name:      "renders_total",
		Help:      "Renders by trigger.",
	}, []string{"trigger"})

	droppedNotifications = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "commitview",
		Name:      "dropped_update_notifications_total",
		Help:      "Update notifications dropped while a render was pending or from a replaced view.",
	})

	debounceDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "commitview",
		Name:      "debounce_delay_seconds",
		Help:      "Delay of armed debounce timers.",
		Buckets:   []float64{0, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	})
)
