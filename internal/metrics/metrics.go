// Package metrics exposes ckv's operational counters in the Prometheus
// exposition format via github.com/VictoriaMetrics/metrics, the same
// client library used for instrumentation elsewhere in this stack.
package metrics

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

var (
	FacadeGetTotal    = metrics.NewCounter(`ckv_facade_get_total`)
	FacadeSetTotal    = metrics.NewCounter(`ckv_facade_set_total`)
	FacadeRemoveTotal = metrics.NewCounter(`ckv_facade_remove_total`)
	FacadeErrorsTotal = metrics.NewCounter(`ckv_facade_errors_total`)

	CacheHitTotal   = metrics.NewCounter(`ckv_cbl_cache_hit_total`)
	CacheMissTotal  = metrics.NewCounter(`ckv_cbl_cache_miss_total`)
	CacheEvictTotal = metrics.NewCounter(`ckv_cbl_cache_evict_total`)

	FlushTotal     = metrics.NewCounter(`ckv_cbl_flush_total`)
	FlushFailTotal = metrics.NewCounter(`ckv_cbl_flush_fail_total`)
	FlushKeysTotal = metrics.NewCounter(`ckv_cbl_flush_keys_total`)
	FlushDuration  = metrics.NewHistogram(`ckv_cbl_flush_duration_seconds`)
)

// WritePrometheus writes all registered metrics to w in the Prometheus
// text exposition format.
func WritePrometheus(w io.Writer) {
	metrics.WritePrometheus(w, true)
}
