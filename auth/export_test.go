package auth

import "time"

// RenewalDelayForTest exposes the renewal timing computation to the test
// package.
func RenewalDelayForTest(remaining time.Duration) time.Duration {
	return renewalDelay(remaining)
}
