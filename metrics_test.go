package agent

import (
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	// These should not panic
	m.OnStateChange(StateIdle, StateUpdating)
	m.OnUpdateQueued(2)
	m.OnUpdateApplied(100 * time.Millisecond)
	m.OnUpdateFailed(50 * time.Millisecond)
	m.OnRequestRejected("update")
}
