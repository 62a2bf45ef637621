package cbl

import "time"

// Options configures a Layer.
type Options struct {
	// Cache is the maximum number of clean (non-dirty) cache entries
	// kept in memory. Zero selects DefaultCache.
	Cache int
	// WriteInterval is the period between flusher ticks. Zero means
	// write-through: every Set/Remove flushes immediately. There is no
	// separate "unset" state that falls back to a default interval —
	// the zero value of Options already asks for write-through, and
	// withDefaults leaves it untouched on purpose.
	WriteInterval time.Duration
	// JSON selects the encoding used when a value crosses the backend
	// boundary. true: encoding/json. false: encoding/gob over the fixed
	// value domain this layer supports.
	JSON bool
	// CacheMinGap is the minimum number of clean entries evicted per
	// eviction pass once Cache is exceeded. Zero selects 10% of Cache.
	CacheMinGap int
}

// DefaultCache is the default maximum number of clean cache entries.
const DefaultCache = 1000

func (o Options) withDefaults() Options {
	if o.Cache <= 0 {
		o.Cache = DefaultCache
	}
	if o.CacheMinGap <= 0 {
		o.CacheMinGap = o.Cache / 10
		if o.CacheMinGap < 1 {
			o.CacheMinGap = 1
		}
	}
	return o
}
