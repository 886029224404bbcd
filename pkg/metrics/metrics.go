package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/labpulse/labpulse/internal/common/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the realtime core's prometheus collectors behind a private
// registry so tests can construct as many instances as they need.
type Metrics struct {
	registry *prometheus.Registry

	connOpen    prometheus.Gauge
	connTotal   prometheus.Counter
	roomsActive prometheus.Gauge
	framesCnt   *prometheus.CounterVec
	eventsCnt   *prometheus.CounterVec
	dropsCnt    prometheus.Counter
	errorsCnt   *prometheus.CounterVec
	brokerPub   prometheus.Counter
	brokerRecv  prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: r,
		connOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "connections_open",
			Help: "Number of websocket connections currently open on this instance",
		}),
		connTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "connections_total",
			Help: "Total websocket connections accepted",
		}),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Name: "rooms_active",
			Help: "Number of rooms with at least one local member",
		}),
		framesCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "frames_received_total",
			Help: "Inbound client frames by channel and action",
		}, []string{"channel", "action"}),
		eventsCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "events_emitted_total",
			Help: "Events routed to rooms by event type",
		}, []string{"event_type"}),
		dropsCnt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "sends_dropped_total",
			Help: "Outbound events dropped because the client send queue was full or closed",
		}),
		errorsCnt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "client_errors_total",
			Help: "Error replies sent to clients by category",
		}, []string{"category"}),
		brokerPub: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "broker_published_total",
			Help: "Envelopes published to the cross-instance topic",
		}),
		brokerRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "broker_received_total",
			Help: "Envelopes received from other instances",
		}),
	}
	r.MustRegister(m.connOpen, m.connTotal, m.roomsActive, m.framesCnt,
		m.eventsCnt, m.dropsCnt, m.errorsCnt, m.brokerPub, m.brokerRecv)

	return m
}

func (m *Metrics) ConnOpened() {
	m.connOpen.Inc()
	m.connTotal.Inc()
}

func (m *Metrics) ConnClosed()            { m.connOpen.Dec() }
func (m *Metrics) SetActiveRooms(n int)   { m.roomsActive.Set(float64(n)) }
func (m *Metrics) FrameReceived(channel, action string) {
	m.framesCnt.WithLabelValues(channel, action).Inc()
}
func (m *Metrics) EventEmitted(eventType string) { m.eventsCnt.WithLabelValues(eventType).Inc() }
func (m *Metrics) SendDropped()                  { m.dropsCnt.Inc() }
func (m *Metrics) ClientError(category string)   { m.errorsCnt.WithLabelValues(category).Inc() }
func (m *Metrics) BrokerPublished()              { m.brokerPub.Inc() }
func (m *Metrics) BrokerReceived()               { m.brokerRecv.Inc() }

// GinHandler serves the private registry on a gin route.
func (m *Metrics) GinHandler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
