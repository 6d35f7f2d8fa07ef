package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rfratto/uartfs/internal/uart"
)

type metricsMiddleware struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	sentBytes prometheus.Counter
}

// newMetricsMiddleware registers server metrics against reg. skipped reports
// the number of bytes the decoder discarded.
func newMetricsMiddleware(reg prometheus.Registerer, skipped func() uint64) (Middleware, error) {
	mm := &metricsMiddleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uartfs_requests_total",
			Help: "Total number of commands handled.",
		}, []string{"command", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uartfs_request_duration_seconds",
			Help:    "Time spent handling commands.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),

		sentBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uartfs_sent_bytes_total",
			Help: "Total number of file bytes sent to the client.",
		}),
	}

	skippedBytes := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "uartfs_skipped_bytes_total",
		Help: "Total number of bytes discarded while searching for a command.",
	}, func() float64 { return float64(skipped()) })

	for _, c := range []prometheus.Collector{mm.requests, mm.duration, mm.sentBytes, skippedBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return mm, nil
}

func (mm *metricsMiddleware) HandleRequest(ctx context.Context, cmd uart.Command, invoker Invoker) (uart.Response, error) {
	start := time.Now()
	resp, err := invoker(ctx, cmd)

	name := cmd.ID().String()
	mm.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	mm.requests.WithLabelValues(name, statusForError(err).String()).Inc()
	if sf, ok := resp.(*uart.SendFileResponse); ok && err == nil {
		mm.sentBytes.Add(float64(len(sf.Data)))
	}
	return resp, err
}
