package memmap

import (
	"testing"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/backendtest"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, "memmap", func(t *testing.T) backend.KVBackend {
		return New(&Options{NumShards: 4})
	})
}

func TestConformanceSingleShard(t *testing.T) {
	backendtest.Run(t, "memmap-1shard", func(t *testing.T) backend.KVBackend {
		return New(&Options{NumShards: 1})
	})
}
