package queue

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// A producer or consumer left parked on a condition variable shows up here.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
