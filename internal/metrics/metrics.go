package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})
	EventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_emitted_total",
		Help: "Realtime events emitted to sessions",
	}, []string{"event"})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ws_events_dropped_total",
		Help: "Events dropped because a session's send buffer was full",
	})
)

func Init() {
	prometheus.MustRegister(ActiveConnections, EventsEmitted, EventsDropped)
}

// Handler returns the scrape endpoint, served on its own listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
