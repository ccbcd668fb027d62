package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Config configures a daemon client.
type Config struct {
	SocketPath string
	Timeout    time.Duration
}

// Client connects to the daemon over its Unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
	requestID  atomic.Uint64
}

// NewClient creates a new daemon client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = connTimeout
	}
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    cfg.Timeout,
	}
}

// Connect establishes a connection to the daemon.
func (c *Client) Connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return conn, nil
}

// IsRunning checks if the daemon is accepting connections.
func (c *Client) IsRunning() bool {
	conn, err := c.Connect()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Ping checks if the daemon is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var out PingResult
	if err := c.call(ctx, MethodPing, nil, &out); err != nil {
		return err
	}
	if !out.Pong {
		return fmt.Errorf("unexpected ping response")
	}
	return nil
}

// Status retrieves daemon and index status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.call(ctx, MethodStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search sends a search request to the daemon.
func (c *Client) Search(ctx context.Context, params SearchParams) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.call(ctx, MethodSearch, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Build sends a build request and streams progress events to onProgress
// until the final result arrives. A build has no fixed deadline; cancel
// via ctx.
func (c *Client) Build(ctx context.Context, params BuildParams, onProgress func(ProgressParams)) (*BuildResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	conn, err := c.Connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(d); err != nil {
			return nil, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	req := Request{
		JSONRPC: "2.0",
		Method:  MethodBuild,
		Params:  params,
		ID:      c.nextID(),
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// The connection interleaves progress notifications with the final
	// response; a message with a method is a notification.
	decoder := json.NewDecoder(conn)
	for {
		var msg struct {
			Method string          `json:"method"`
			Params ProgressParams  `json:"params"`
			Result json.RawMessage `json:"result"`
			Error  *Error          `json:"error"`
		}
		if err := decoder.Decode(&msg); err != nil {
			return nil, fmt.Errorf("failed to receive response: %w", err)
		}

		if msg.Method == MethodProgress {
			if onProgress != nil {
				onProgress(msg.Params)
			}
			continue
		}

		if msg.Error != nil {
			return nil, fmt.Errorf("build failed: %s (code: %d)", msg.Error.Message, msg.Error.Code)
		}

		var result BuildResult
		if err := json.Unmarshal(msg.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		return &result, nil
	}
}

// call performs one request/response exchange and decodes the result
// into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}

	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID(),
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("failed to receive response: %w", err)
	}

	if resp.Error != nil {
		if s, ok := resp.Error.Data.(string); ok && s != "" {
			return fmt.Errorf("%s: %s", s, resp.Error.Message)
		}
		return fmt.Errorf("%s failed: %s (code: %d)", method, resp.Error.Message, resp.Error.Code)
	}

	if out == nil {
		return nil
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

// nextID generates a unique request ID.
func (c *Client) nextID() string {
	id := c.requestID.Add(1)
	return fmt.Sprintf("req-%d", id)
}
