package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Record outcomes, used as the "result" label.
const (
	ResultAccepted = "accepted"
	ResultShort    = "short"
	ResultLong     = "long"
	ResultParse    = "parse"
	ResultChecksum = "checksum"
)

// Prom counts what the poll loop sees.
type Prom struct {
	records    *prometheus.CounterVec
	readErrors prometheus.Counter
	bytesRead  prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Prom {
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "osp3_records_total",
		Help: "Log entries read from the device, by outcome.",
	}, []string{"result"})
	readErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osp3_read_errors_total",
		Help: "Reads that ended in a timeout, overflow or transport failure.",
	})
	bytesRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "osp3_bytes_read_total",
		Help: "Bytes of log entries read, terminators included.",
	})

	reg.MustRegister(records, readErrors, bytesRead)

	// Pre-create so every outcome is exported from the start.
	for _, r := range []string{ResultAccepted, ResultShort, ResultLong, ResultParse, ResultChecksum} {
		records.WithLabelValues(r)
	}

	return &Prom{
		records:    records,
		readErrors: readErrors,
		bytesRead:  bytesRead,
	}
}

func (p *Prom) Record(result string) {
	p.records.WithLabelValues(result).Inc()
}

func (p *Prom) ReadError() {
	p.readErrors.Inc()
}

func (p *Prom) BytesRead(n int) {
	p.bytesRead.Add(float64(n))
}

// NewServer returns an HTTP server exposing g on /metrics.
func NewServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
