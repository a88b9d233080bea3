// Package metrics exposes session traffic as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/1ureka/ucctl/internal/protocol"
	"github.com/1ureka/ucctl/internal/transport"
	"github.com/1ureka/ucctl/internal/util"
)

const namespace = "ucctl"

// Metrics owns a private registry so several sessions in one process (or
// test) never collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	packets    *prometheus.CounterVec
	zmFailures prometheus.Counter
}

// New registers the session metrics. queueDepth reports the driver's
// outbound backlog and may be nil.
func New(queueDepth func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		packets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "packets_total",
				Help:      "Packets written to or decoded from the mixer.",
			},
			[]string{"direction", "channel", "kind"},
		),
		zmFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zm_decode_failures_total",
			Help:      "Compressed payloads that failed to inflate or were not valid text.",
		}),
	}

	m.registry.MustRegister(
		m.packets,
		m.zmFailures,
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Frames or datagrams that could not be decoded.",
		}, func() float64 { return float64(util.Stats.DecodeErrors.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sent_bytes_total",
			Help:      "Bytes written to the control socket.",
		}, func() float64 { return float64(util.Stats.BytesSent.Load()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "received_bytes_total",
			Help:      "Bytes framed from the control socket.",
		}, func() float64 { return float64(util.Stats.BytesRecv.Load()) }),
	)

	if queueDepth != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbound_queue_depth",
			Help:      "Packets waiting for the sender.",
		}, func() float64 { return float64(queueDepth()) }))
	}

	return m
}

// Observe is a transport.Observer.
func (m *Metrics) Observe(e transport.Event) {
	if e.Packet == nil {
		return
	}
	m.packets.WithLabelValues(e.Direction.String(), string(e.Channel), e.Packet.Kind().String()).Inc()

	if e.Packet.Kind() == protocol.KindCompressed {
		if _, err := e.Inflate(); err != nil {
			m.zmFailures.Inc()
		}
	}
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
