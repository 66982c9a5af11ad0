// Package retry re-runs flaky operations with backoff.
//
// Browser navigation is the main caller: a page load that times out is
// typed as a browser error and retried, while cancellation and
// non-retryable typed errors return immediately.
//
//	err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
//		return page.Navigate(url)
//	})
package retry
