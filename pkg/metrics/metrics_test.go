package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.ObserveRequest("Inventory", "get_items", 200, 10*time.Millisecond, nil)
	c.ObserveRequest("Inventory", "get_items", 0, time.Millisecond, errors.New("refused"))
	c.CacheHit("Inventory", "get_items")
	c.CacheMiss("Inventory", "get_items")
	c.CacheRefresh("Inventory", "get_items")
	c.InstanceCreated("Inventory")

	if got := testutil.ToFloat64(c.Requests.WithLabelValues("Inventory", "get_items", "200")); got != 1 {
		t.Errorf("requests{200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Requests.WithLabelValues("Inventory", "get_items", "error")); got != 1 {
		t.Errorf("requests{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.RequestErrors.WithLabelValues("Inventory", "get_items")); got != 1 {
		t.Errorf("request errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.CacheHits.WithLabelValues("Inventory", "get_items")); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Instances.WithLabelValues("Inventory")); got != 1 {
		t.Errorf("instances = %v, want 1", got)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.ObserveRequest("A", "b", 200, time.Second, nil)
	c.CacheHit("A", "b")
	c.CacheMiss("A", "b")
	c.CacheRefresh("A", "b")
	c.InstanceCreated("A")
	c.DecodeFailed("A", "b")
	c.ArgumentRejected("A", "b")
}
