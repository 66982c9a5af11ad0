package collector

import (
	"context"

	"linkstash/internal/pool"
	"linkstash/pkg/messenger"
	"linkstash/pkg/store"
)

// OpenFunc opens a page for url and returns the connection to its agent
// along with a function that releases the page.
type OpenFunc func(ctx context.Context, url string) (messenger.Conn, func(), error)

// Action is what Batch does with each page's collector
type Action func(ctx context.Context, c *Collector) (Summary, error)

// RunAction runs a full scroll collection with req
func RunAction(req Request) Action {
	return func(ctx context.Context, c *Collector) (Summary, error) {
		return c.Run(ctx, req)
	}
}

// BatchOptions configures Batch
type BatchOptions struct {
	Options
	Workers int
	Request Request
	// Action replaces the scroll run of Request when set
	Action Action
}

// BatchResult is the outcome for one page URL
type BatchResult = pool.Result[string, Summary]

// Batch collects several pages concurrently, one page and agent per job.
// Results come back in the order of urls.
func Batch(ctx context.Context, urls []string, open OpenFunc, st *store.Store, opts BatchOptions) []BatchResult {
	action := opts.Action
	if action == nil {
		action = RunAction(opts.Request)
	}
	return pool.Run(ctx, urls, func(ctx context.Context, url string) (Summary, error) {
		conn, release, err := open(ctx, url)
		if err != nil {
			return Summary{URL: url}, err
		}
		defer release()

		sum, err := action(ctx, New(conn, st, opts.Options))
		if sum.URL == "" {
			sum.URL = url
		}
		return sum, err
	}, pool.Options{Workers: opts.Workers, Logger: opts.Logger})
}
