package sqlite

import (
	"testing"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/backendtest"
)

func TestConformance(t *testing.T) {
	backendtest.Run(t, "sqlite", func(t *testing.T) backend.KVBackend {
		b, err := New(":memory:")
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return b
	})
}
