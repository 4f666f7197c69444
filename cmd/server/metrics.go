package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunobiangulo/docreader"
)

// metrics holds the server's Prometheus collectors on a private registry.
type metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	documents *prometheus.CounterVec
	docBytes  prometheus.Histogram
	cacheHits prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docreader_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docreader_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"route"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docreader_documents_total",
			Help: "Documents read by format, extraction method and outcome.",
		}, []string{"format", "method", "outcome"}),
		docBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docreader_document_bytes",
			Help:    "Size of documents read.",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docreader_cache_hits_total",
			Help: "Reads answered from the result cache.",
		}),
	}
	m.registry.MustRegister(m.requests, m.latency, m.documents, m.docBytes, m.cacheHits,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe records one document outcome. size is the request's content
// length, 0 when unknown.
func (m *metrics) observe(resp docreader.Response, size int) {
	outcome := "ok"
	if resp.Err != nil {
		outcome = "error"
	} else if resp.Method == "exhausted" {
		outcome = "empty"
	}
	format := resp.FileType
	if format == "" {
		format = "unknown"
	}
	m.documents.WithLabelValues(format, resp.Method, outcome).Inc()
	if size > 0 {
		m.docBytes.Observe(float64(size))
	}
	if resp.Cached {
		m.cacheHits.Inc()
	}
}

// middleware records request counts and latency. Routes are labelled by
// the matched mux pattern to keep label cardinality bounded.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(route, strconv.Itoa(rw.status)).Inc()
		m.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
