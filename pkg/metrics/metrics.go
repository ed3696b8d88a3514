// Package metrics provides Prometheus metrics for compiled API clients.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the metrics of every client instance sharing it.
type Collector struct {
	// Transport metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Cache metrics
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	CacheRefreshes *prometheus.CounterVec

	// Client metrics
	Instances      *prometheus.CounterVec
	DecodeErrors   *prometheus.CounterVec
	ArgumentErrors *prometheus.CounterVec
}

// New creates a collector registered with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests sent by compiled methods",
			},
			[]string{"class", "method", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "webapi",
				Name:      "request_duration_seconds",
				Help:      "HTTP round trip duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"class", "method"},
		),
		RequestErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "request_errors_total",
				Help:      "Total number of failed HTTP requests",
			},
			[]string{"class", "method"},
		),
		CacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "cache_hits_total",
				Help:      "Total number of calls answered from the response cache",
			},
			[]string{"class", "method"},
		),
		CacheMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "cache_misses_total",
				Help:      "Total number of calls that found no cache entry",
			},
			[]string{"class", "method"},
		),
		CacheRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "cache_refreshes_total",
				Help:      "Total number of cache entries fetched or refreshed",
			},
			[]string{"class", "method"},
		),
		Instances: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "instances_total",
				Help:      "Total number of client instances constructed",
			},
			[]string{"class"},
		),
		DecodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "decode_errors_total",
				Help:      "Total number of responses that were not valid JSON",
			},
			[]string{"class", "method"},
		),
		ArgumentErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webapi",
				Name:      "argument_errors_total",
				Help:      "Total number of calls rejected for their argument set",
			},
			[]string{"class", "method"},
		),
	}
}

// ObserveRequest records one round trip. status is zero when the request failed
// before a response was received.
func (c *Collector) ObserveRequest(class, method string, status int, d time.Duration, err error) {
	if c == nil {
		return
	}
	label := "error"
	if status != 0 {
		label = strconv.Itoa(status)
	}
	c.Requests.WithLabelValues(class, method, label).Inc()
	c.RequestDuration.WithLabelValues(class, method).Observe(d.Seconds())
	if err != nil {
		c.RequestErrors.WithLabelValues(class, method).Inc()
	}
}

// CacheHit counts a cached method call answered from the cache.
func (c *Collector) CacheHit(class, method string) {
	if c != nil {
		c.CacheHits.WithLabelValues(class, method).Inc()
	}
}

// CacheMiss counts a cached method call that had to fetch.
func (c *Collector) CacheMiss(class, method string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(class, method).Inc()
	}
}

// CacheRefresh counts a fetched body written to the cache.
func (c *Collector) CacheRefresh(class, method string) {
	if c != nil {
		c.CacheRefreshes.WithLabelValues(class, method).Inc()
	}
}

// InstanceCreated counts a constructed instance of class.
func (c *Collector) InstanceCreated(class string) {
	if c != nil {
		c.Instances.WithLabelValues(class).Inc()
	}
}

// DecodeFailed counts a response body that was not valid JSON.
func (c *Collector) DecodeFailed(class, method string) {
	if c != nil {
		c.DecodeErrors.WithLabelValues(class, method).Inc()
	}
}

// ArgumentRejected counts a call rejected for its argument set.
func (c *Collector) ArgumentRejected(class, method string) {
	if c != nil {
		c.ArgumentErrors.WithLabelValues(class, method).Inc()
	}
}
