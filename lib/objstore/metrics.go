package objstore

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// RegisterMetrics registers gauges for the store counters on the given set.
// labels is a raw Prometheus label list such as `shard="3"` distinguishing
// multiple stores in one set; pass "" for none. The gauges read the live
// counters, so registration is cheap and values never go stale.
func (s *Store) RegisterMetrics(set *metrics.Set, labels string) {
	name := func(base string) string {
		if labels == "" {
			return base
		}
		return fmt.Sprintf("%s{%s}", base, labels)
	}

	set.NewGauge(name("ostore_local_objects"), func() float64 {
		return float64(s.Stats().NumLocalObjects)
	})
	set.NewGauge(name("ostore_fallback_objects"), func() float64 {
		return float64(s.Stats().NumInFallback)
	})
	set.NewGauge(name("ostore_local_bytes"), func() float64 {
		return float64(s.Stats().NumLocalBytes)
	})
}
