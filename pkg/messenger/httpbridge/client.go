package httpbridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"linkstash/pkg/errors"
	"linkstash/pkg/logger"
	"linkstash/pkg/messenger"
)

// Client is a messenger.Conn to a Server
type Client struct {
	base   string
	http   *http.Client
	log    logger.Logger
	events chan messenger.Event

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Dial connects to a bridge at baseURL and starts reading its event
// stream. The stream ends when ctx ends or the client is closed.
func Dial(ctx context.Context, baseURL string, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{},
		log:    log.WithField("component", "httpbridge-client"),
		events: make(chan messenger.Event, 256),
		done:   make(chan struct{}),
	}

	streamCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.base+"/events", nil)
	if err != nil {
		cancel()
		return nil, errors.Wrap(errors.ErrorTypeInvalidInput, "bad bridge URL", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, errors.Wrap(errors.ErrorTypeUnreachable, "connecting to "+c.base, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, errors.New(errors.ErrorTypeUnreachable, fmt.Sprintf("event stream returned %s", resp.Status))
	}

	go c.read(resp)
	return c, nil
}

func (c *Client) read(resp *http.Response) {
	defer close(c.done)
	defer close(c.events)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), maxCommandBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := messenger.DecodeEvent(line)
		if err != nil {
			c.log.WithError(err).Debug("skipping event")
			continue
		}
		select {
		case c.events <- e:
		default:
			c.log.WithField("type", e.Type()).Debug("event dropped, reader is behind")
		}
	}
}

// Send posts a command and decodes the reply
func (c *Client) Send(ctx context.Context, cmd messenger.Command) (messenger.Reply, error) {
	body, err := messenger.EncodeCommand(cmd)
	if err != nil {
		return messenger.Reply{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/command", bytes.NewReader(body))
	if err != nil {
		return messenger.Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return messenger.Reply{}, errors.Wrap(errors.ErrorTypeUnreachable, "no reply to "+cmd.Action(), err)
	}
	defer resp.Body.Close()

	var reply messenger.Reply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return messenger.Reply{}, errors.Wrap(errors.ErrorTypeProtocol, "decoding reply to "+cmd.Action(), err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := reply.Error
		if msg == "" {
			msg = resp.Status
		}
		return reply, errors.New(errors.ErrorTypeProtocol, cmd.Action()+": "+msg)
	}
	return reply, nil
}

func (c *Client) Events() <-chan messenger.Event {
	return c.events
}

// Close stops the event stream and waits for the reader to exit
func (c *Client) Close() error {
	c.once.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}
