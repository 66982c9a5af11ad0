// Package ratelimit caps how often an action may run.
//
// The scroll driver uses a TokenBucket to bound scroll actions per second
// regardless of how fast ticks arrive, and the HTTP bridge uses a
// SlidingWindow to shed command floods. Both accept a Clock so tests can
// advance time without sleeping.
//
//	limiter := ratelimit.PerSecond(2, nil)
//	if limiter.Allow() {
//	    // scroll
//	}
package ratelimit
