// utils/failover.go
package utils

import "fmt"

// tryEach runs fn over providers in order and returns the first successful
// result. The DNS resolver uses it across DoH endpoints and the prober across
// sender identities; both contracts are "accept the first success, aggregate
// the last error".
func tryEach[T any, R any](providers []T, fn func(T) (R, error)) (R, error) {
	var zero R
	var lastErr error
	for _, p := range providers {
		result, err := fn(p)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return zero, lastErr
}
