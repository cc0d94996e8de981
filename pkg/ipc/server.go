package ipc

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/oklog/ulid/v2"
)

// HandlerFunc processes RPC params and returns a result or structured error.
type HandlerFunc func(context.Context, json.RawMessage) (any, *Error)

// StreamFunc opens an event stream. Every value received from the channel is
// sent to the client until the channel closes or the connection ends.
type StreamFunc func(context.Context, json.RawMessage) (<-chan any, *Error)

// Logger is satisfied by logging.Logger; kept minimal to avoid dependency cycles.
type Logger interface {
	Debugf(format string, v ...any)
	Warnf(format string, v ...any)
}

// Server listens for IPC requests over Unix sockets.
type Server struct {
	ln       net.Listener
	path     string
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	streams  map[string]StreamFunc
	closed   bool
	logger   Logger
	maxFrame int
	wg       sync.WaitGroup
}

// NewServer constructs an IPC server. A non-positive maxFrame selects
// DefaultMaxFrameSize.
func NewServer(logger Logger, maxFrame int) *Server {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &Server{
		handlers: make(map[string]HandlerFunc),
		streams:  make(map[string]StreamFunc),
		logger:   logger,
		maxFrame: maxFrame,
	}
}

// Register installs a handler for a method.
func (s *Server) Register(method string, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

// RegisterStream installs a streaming method. The connection is dedicated to
// the stream once it starts.
func (s *Server) RegisterStream(method string, stream StreamFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[method] = stream
}

// Start begins accepting connections on endpoint. A stale socket file left by
// a previous run is removed; a live one is an error.
func (s *Server) Start(ctx context.Context, endpoint string) error {
	if s == nil {
		return errors.New("nil server")
	}
	if err := removeStaleSocket(endpoint); err != nil {
		return err
	}
	ln, err := net.Listen("unix", endpoint)
	if err != nil {
		return err
	}
	if err := os.Chmod(endpoint, 0o600); err != nil {
		ln.Close()
		return err
	}
	s.ln = ln
	s.path = endpoint
	go s.acceptLoop(ctx)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if conn, err := net.Dial("unix", path); err == nil {
		conn.Close()
		return fmt.Errorf("socket %s is in use", path)
	}
	return os.Remove(path)
}

// Addr returns the socket path being served.
func (s *Server) Addr() string { return s.path }

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || s.isClosed() {
				return
			}
			s.logger.Warnf("accept error: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		payload, err := readFrame(conn, s.maxFrame)
		if err != nil {
			if errors.Is(err, ErrFrameTooLarge) {
				s.writeResponse(conn, errorResponse("", NewTraceID(), Errorf(CodeInvalidRequest, err.Error(), nil)))
			}
			return
		}
		var req Request
		if err := json.Unmarshal(payload, &req); err != nil {
			s.writeResponse(conn, errorResponse(req.ID, NewTraceID(), Errorf(CodeInvalidRequest, "invalid json", nil)))
			continue
		}
		traceID := NewTraceID()
		if stream := s.lookupStream(req.Type); stream != nil {
			s.serveStream(ctx, conn, req, traceID, stream)
			return
		}
		handler := s.lookupHandler(req.Type)
		if handler == nil {
			s.writeResponse(conn, errorResponse(req.ID, traceID, Errorf(CodeInvalidRequest, "unknown method", map[string]any{"method": req.Type})))
			continue
		}
		s.logger.Debugf("ipc %s %s", traceID, req.Type)
		result, rpcErr := s.call(ctx, handler, req)
		resp := Response{ID: req.ID, TraceID: traceID}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			raw, err := json.Marshal(result)
			if err != nil {
				s.writeResponse(conn, errorResponse(req.ID, traceID, Errorf(CodeInternal, err.Error(), nil)))
				continue
			}
			resp.OK = true
			resp.Result = raw
		}
		if err := s.writeResponse(conn, resp); err != nil {
			return
		}
	}
}

// call runs a handler, turning a panic into an INTERNAL error.
func (s *Server) call(ctx context.Context, handler HandlerFunc, req Request) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warnf("handler %s panicked: %v", req.Type, r)
			result, rpcErr = nil, Errorf(CodeInternal, fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return handler(ctx, req.Params)
}

func (s *Server) serveStream(ctx context.Context, conn net.Conn, req Request, traceID string, stream StreamFunc) {
	events, rpcErr := stream(ctx, req.Params)
	if rpcErr != nil {
		s.writeResponse(conn, errorResponse(req.ID, traceID, rpcErr))
		return
	}
	if err := s.writeResponse(conn, Response{ID: req.ID, OK: true, TraceID: traceID}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			raw, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warnf("stream %s: marshal event: %v", req.Type, err)
				continue
			}
			if err := s.writeResponse(conn, Response{ID: req.ID, OK: true, Result: raw, TraceID: traceID}); err != nil {
				return
			}
		}
	}
}

func (s *Server) lookupHandler(method string) HandlerFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[method]
}

func (s *Server) lookupStream(method string) StreamFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streams[method]
}

func (s *Server) writeResponse(conn net.Conn, resp Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return writeFrame(conn, payload)
}

func errorResponse(id, traceID string, rpcErr *Error) Response {
	return Response{ID: id, Error: rpcErr, TraceID: traceID}
}

// Stop shuts down the listener and removes the socket file. Connections in
// flight finish when their context ends.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	os.Remove(s.path)
	return err
}

// Wait blocks until every connection handler has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// NewTraceID returns a fresh ULID used to correlate a request with daemon logs.
func NewTraceID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
