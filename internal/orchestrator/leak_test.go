package orchestrator

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain guards the errgroup-based parallel task dispatch in tasks.go
// against goroutine leaks, the same check run around other concurrent
// engines (internal/mangle/engine_test.go).
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}
