package messenger

import (
	"context"
	"time"

	"linkstash/pkg/errors"
)

// StatusPong is the only acceptable reply to a ping
const StatusPong = "pong"

// ErrUnreachable means the page did not answer a ping. Nothing retries
// it: the user has to reload the page.
var ErrUnreachable = errors.New(errors.ErrorTypeUnreachable,
	"the page is not ready yet: refresh the page and try again")

// Preflight pings the page and fails with ErrUnreachable unless it
// answers pong within timeout.
func Preflight(ctx context.Context, conn Conn, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	reply, err := conn.Send(ctx, Ping{})
	if err != nil {
		return errors.Wrap(ErrUnreachable.Type, ErrUnreachable.Message, err)
	}
	if reply.Status != StatusPong {
		return ErrUnreachable
	}
	return nil
}
