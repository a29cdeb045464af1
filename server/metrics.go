package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"

	"github.com/anon55555/cinners/rdt"
)

const namespace = "cinners"

type metrics struct {
	sessions      prometheus.Gauge
	logins        *prometheus.CounterVec
	commands      *prometheus.CounterVec
	cmdDuration   *prometheus.HistogramVec
	notifications *prometheus.CounterVec

	// transport is the rdt.Counters of the Listener being served.
	transport atomic.Pointer[rdt.Counters]
}

func newMetrics(reg *prometheus.Registry) *metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of logged in sessions",
		}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),

		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands handled by command and status",
		}, []string{"command", "status"}),

		cmdDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time spent running commands against the store",
			Buckets:   []float64{.00001, .0001, .001, .01, .1},
		}, []string{"command"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications delivered to other users by result",
		}, []string{"result"}),
	}

	for _, c := range []struct {
		name, help string
		get        func(*rdt.Counters) *atomic.Uint64
	}{
		{"sent", "Data packets sent for the first time", func(c *rdt.Counters) *atomic.Uint64 { return &c.Sent }},
		{"retransmitted", "Data packets resent after an ACK timeout", func(c *rdt.Counters) *atomic.Uint64 { return &c.Retransmitted }},
		{"delivered", "Payloads delivered to sessions", func(c *rdt.Counters) *atomic.Uint64 { return &c.Delivered }},
		{"duplicates", "Duplicate data packets re-acknowledged", func(c *rdt.Counters) *atomic.Uint64 { return &c.Duplicates }},
		{"acks_sent", "ACKs sent", func(c *rdt.Counters) *atomic.Uint64 { return &c.AcksSent }},
		{"overflows", "Data packets dropped on a full receive queue", func(c *rdt.Counters) *atomic.Uint64 { return &c.Overflows }},
		{"malformed", "Packets that could not be parsed", func(c *rdt.Counters) *atomic.Uint64 { return &c.Malformed }},
	} {
		get := c.get
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rdt",
			Name:      c.name + "_total",
			Help:      c.help,
		}, func() float64 {
			cnt := m.transport.Load()
			if cnt == nil {
				return 0
			}
			return float64(get(cnt).Load())
		})
	}

	return m
}

// watch makes the rdt metrics report cnt.
func (m *metrics) watch(cnt *rdt.Counters) {
	m.transport.Store(cnt)
}
