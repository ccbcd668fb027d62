// Package daemon exposes the index over a Unix socket using JSON-RPC
// 2.0. Each connection carries one request and its response; a build
// request additionally receives index-progress notifications on the
// same connection before the final response.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	crosserr "github.com/crosseverything/crosseverything/internal/errors"
)

// connTimeout bounds a single request/response exchange. Build requests
// are exempt; they run as long as the traversal takes.
const connTimeout = 30 * time.Second

// ProgressSink receives progress events for one in-flight build.
type ProgressSink func(processed, total int)

// RequestHandler handles incoming RPC requests.
type RequestHandler interface {
	// HandleBuild runs a build, streaming progress to sink. It always
	// returns a result; failures are reported in the result status.
	HandleBuild(ctx context.Context, params BuildParams, sink ProgressSink) BuildResult

	// HandleSearch executes a query and returns the result payload.
	HandleSearch(ctx context.Context, params SearchParams) (any, error)

	// GetStatus returns the current index status.
	GetStatus() StatusResult
}

// Server listens on a Unix socket and handles RPC requests.
type Server struct {
	socketPath string
	listener   net.Listener
	handler    RequestHandler
	started    time.Time

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a server that will listen on the given socket path.
func NewServer(socketPath string, handler RequestHandler) *Server {
	return &Server{
		socketPath: socketPath,
		handler:    handler,
	}
}

// ListenAndServe starts the server and blocks until the context is
// cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Clean up any stale socket.
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	s.started = time.Now()

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	slog.Info("daemon listening", slog.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			slog.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

// handleConnection processes a single client connection.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(connTimeout)); err != nil {
		slog.Warn("failed to set connection deadline", slog.String("error", err.Error()))
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		resp := NewErrorResponse("", ErrCodeParseError, "failed to parse request")
		_ = encoder.Encode(resp)
		return
	}

	if req.Method == MethodBuild {
		// A build outlives any fixed exchange deadline.
		_ = conn.SetDeadline(time.Time{})
	}

	resp := s.handleRequest(ctx, req, encoder)
	_ = encoder.Encode(resp)
}

// handleRequest dispatches a request. The encoder is used only by build
// to stream progress notifications before the final response.
func (s *Server) handleRequest(ctx context.Context, req Request, encoder *json.Encoder) Response {
	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, PingResult{Pong: true})

	case MethodStatus:
		status := s.handler.GetStatus()
		status.Running = true
		status.PID = os.Getpid()
		status.Uptime = time.Since(s.started).Round(time.Second).String()
		return NewSuccessResponse(req.ID, status)

	case MethodBuild:
		return s.handleBuild(ctx, req, encoder)

	case MethodSearch:
		return s.handleSearch(ctx, req)

	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound,
			fmt.Sprintf("method not found: %s", req.Method))
	}
}

// handleBuild runs a build, streaming progress notifications to the
// requesting connection.
func (s *Server) handleBuild(ctx context.Context, req Request, encoder *json.Encoder) Response {
	var params BuildParams
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}
	if err := params.Validate(); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
	}

	sink := func(processed, total int) {
		if err := encoder.Encode(NewProgressNotification(processed, total)); err != nil {
			slog.Debug("failed to stream progress", slog.String("error", err.Error()))
		}
	}

	result := s.handler.HandleBuild(ctx, params, sink)
	return NewSuccessResponse(req.ID, result)
}

// handleSearch processes a search request.
func (s *Server) handleSearch(ctx context.Context, req Request) Response {
	var params SearchParams
	if resp := decodeParams(req, &params); resp != nil {
		return *resp
	}

	result, err := s.handler.HandleSearch(ctx, params)
	if err != nil {
		return searchErrorResponse(req.ID, err)
	}
	return NewSuccessResponse(req.ID, result)
}

// searchErrorResponse maps internal error codes to wire errors. Clients
// match on the stable string in Error.Data.
func searchErrorResponse(id string, err error) Response {
	resp := NewErrorResponse(id, ErrCodeSearchFailed, err.Error())
	switch crosserr.GetCode(err) {
	case crosserr.ErrCodeIndexNotReady:
		resp.Error.Code = ErrCodeIndexNotReady
		resp.Error.Data = WireIndexNotReady
	case crosserr.ErrCodeInvalidRegex:
		resp.Error.Code = ErrCodeInvalidRegex
		resp.Error.Data = WireInvalidRegex
	}
	return resp
}

// decodeParams round-trips req.Params into dst. Returns a non-nil error
// response on failure.
func decodeParams(req Request, dst any) *Response {
	raw, err := json.Marshal(req.Params)
	if err != nil {
		resp := NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to encode params")
		return &resp
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		resp := NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to decode params")
		return &resp
	}
	return nil
}

// Close stops the server.
func (s *Server) Close() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
