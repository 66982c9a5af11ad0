// Package httpbridge carries the messenger protocol over local HTTP so a
// controller can drive a page served by another process.
//
//	POST /command   JSON command in, JSON reply out
//	GET  /events    newline-delimited JSON event stream
//	GET  /healthz   liveness
package httpbridge

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"linkstash/pkg/logger"
	"linkstash/pkg/messenger"
	"linkstash/pkg/ratelimit"
)

const maxCommandBytes = 1 << 20

// Server exposes a page's Handler and fans its pushes out to every
// connected event stream. It implements messenger.Pusher.
type Server struct {
	handler messenger.Handler
	limiter ratelimit.Limiter
	log     logger.Logger
	buffer  int

	mu     sync.Mutex
	subs   map[chan messenger.Event]struct{}
	closed bool
}

type Options struct {
	// MaxCommandsPerMinute rejects commands beyond the limit with 429;
	// 0 disables the limit.
	MaxCommandsPerMinute int
	// EventBuffer is the per-subscriber queue; a slow reader loses events
	EventBuffer int
	Logger      logger.Logger
}

func NewServer(handler messenger.Handler, opts Options) *Server {
	if opts.EventBuffer < 1 {
		opts.EventBuffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}
	s := &Server{
		handler: handler,
		log:     opts.Logger.WithField("component", "httpbridge"),
		buffer:  opts.EventBuffer,
		subs:    make(map[chan messenger.Event]struct{}),
	}
	if opts.MaxCommandsPerMinute > 0 {
		s.limiter = ratelimit.NewSlidingWindow(opts.MaxCommandsPerMinute, time.Minute)
	}
	return s
}

// SetHandler attaches the page once it exists
func (s *Server) SetHandler(h messenger.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/command", s.handleCommand)
	r.Get("/events", s.handleEvents)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.LogRequest(s.log, r.Method, r.URL.Path, ww.Status(), float64(time.Since(start).Microseconds())/1000)
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, messenger.Reply{Error: "too many commands"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messenger.Reply{Error: err.Error()})
		return
	}
	cmd, err := messenger.DecodeCommand(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, messenger.Reply{Error: err.Error()})
		return
	}

	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		writeJSON(w, http.StatusServiceUnavailable, messenger.Reply{Error: "no page attached"})
		return
	}

	reply, err := h.Handle(r.Context(), cmd)
	if err != nil {
		s.log.WithError(err).WithField("action", cmd.Action()).Warn("command failed")
		reply.Error = err.Error()
		writeJSON(w, http.StatusBadGateway, reply)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch, ok := s.subscribe()
	if !ok {
		http.Error(w, "server closed", http.StatusServiceUnavailable)
		return
	}
	defer s.unsubscribe(ch)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			line, err := messenger.EncodeEvent(e)
			if err != nil {
				s.log.WithError(err).Warn("encoding event")
				continue
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) subscribe() (chan messenger.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	ch := make(chan messenger.Event, s.buffer)
	s.subs[ch] = struct{}{}
	return ch, true
}

func (s *Server) unsubscribe(ch chan messenger.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

// Subscribers is the number of connected event streams
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Push offers e to every subscriber without blocking. It reports whether
// at least one subscriber took it.
func (s *Server) Push(e messenger.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delivered := false
	for ch := range s.subs {
		select {
		case ch <- e:
			delivered = true
		default:
		}
	}
	return delivered
}

// Close ends every event stream
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subs {
		delete(s.subs, ch)
		close(ch)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
