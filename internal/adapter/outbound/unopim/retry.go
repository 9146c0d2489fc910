package unopim

import (
	"context"
	"time"
)

// maxAttempts bounds every retry loop in this package: the token exchange and
// the request executor each make at most three attempts per logical call.
const maxAttempts = 3

// defaultRetryDelays holds the delay applied before attempt n+1. The first
// attempt always runs immediately; a 401-triggered retry also skips its
// scheduled delay because the failure carries no backpressure signal.
var defaultRetryDelays = []time.Duration{0, time.Second, 3 * time.Second}

// sleepFor waits d or until ctx is cancelled, whichever comes first.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
