// Package messenger carries commands and push events between the
// controller and a page.
//
// Commands are request/response. Events are best-effort: a push that
// cannot be delivered immediately is dropped. Both are closed sets of
// variants with a JSON codec keyed on "action" and "type".
package messenger

import (
	"context"
	"sync"

	"linkstash/pkg/errors"
)

// Conn is the controller's end of a connection to a page
type Conn interface {
	Send(ctx context.Context, c Command) (Reply, error)
	Events() <-chan Event
	Close() error
}

// Handler answers commands on the page side
type Handler interface {
	Handle(ctx context.Context, c Command) (Reply, error)
}

type HandlerFunc func(ctx context.Context, c Command) (Reply, error)

func (f HandlerFunc) Handle(ctx context.Context, c Command) (Reply, error) { return f(ctx, c) }

// Pusher is the page's end of the event stream
type Pusher interface {
	Push(e Event) bool
}

// ErrClosed is returned by Send on a closed connection
var ErrClosed = errors.New(errors.ErrorTypeUnreachable, "connection closed")

// Pipe is an in-process connection. It is both the controller's Conn
// and the page's Pusher.
type Pipe struct {
	handler Handler
	events  chan Event

	mu     sync.RWMutex
	closed bool
}

// NewPipe connects a controller to handler with an event buffer of the
// given size.
func NewPipe(handler Handler, buffer int) *Pipe {
	if buffer < 1 {
		buffer = 1
	}
	return &Pipe{handler: handler, events: make(chan Event, buffer)}
}

// SetHandler attaches the page once it exists. Pages usually need the
// pipe as their Pusher, so they are built after it.
func (p *Pipe) SetHandler(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Send runs the command on the page. A page that does not answer before
// ctx ends is reported as unreachable.
func (p *Pipe) Send(ctx context.Context, c Command) (Reply, error) {
	p.mu.RLock()
	closed, h := p.closed, p.handler
	p.mu.RUnlock()
	if closed {
		return Reply{}, ErrClosed
	}
	if h == nil {
		return Reply{}, errors.New(errors.ErrorTypeUnreachable, "no page attached")
	}

	type result struct {
		reply Reply
		err   error
	}
	done := make(chan result, 1)
	go func() {
		r, err := h.Handle(ctx, c)
		done <- result{r, err}
	}()

	select {
	case r := <-done:
		return r.reply, r.err
	case <-ctx.Done():
		return Reply{}, errors.Wrap(errors.ErrorTypeUnreachable, "no reply to "+c.Action(), ctx.Err())
	}
}

// Push delivers e without blocking. It reports false when the event was
// dropped because the buffer is full or the pipe is closed.
func (p *Pipe) Push(e Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.events <- e:
		return true
	default:
		return false
	}
}

func (p *Pipe) Events() <-chan Event {
	return p.events
}

// Close ends the event stream. It is safe to call more than once.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}
