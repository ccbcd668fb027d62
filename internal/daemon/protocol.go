package daemon

import "fmt"

// JSON-RPC 2.0 method names.
const (
	MethodBuild  = "build"
	MethodSearch = "search"
	MethodStatus = "status"
	MethodPing   = "ping"
)

// MethodProgress is the notification method streamed to the requesting
// connection while a build runs. Notifications carry no ID.
const MethodProgress = "index-progress"

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Custom error codes for daemon-specific errors. The wire string in
// Error.Data is the stable identifier clients match on.
const (
	ErrCodeIndexNotReady = -32001
	ErrCodeInvalidRegex  = -32002
	ErrCodeSearchFailed  = -32003
	ErrCodeBuildFailed   = -32004
)

// Stable wire error identifiers.
const (
	WireIndexNotReady = "INDEX_NOT_READY"
	WireInvalidRegex  = "INVALID_REGEX"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      string `json:"id"`
}

// Notification is a JSON-RPC 2.0 notification (no ID, no reply).
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	return Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// NewProgressNotification creates an index-progress notification.
func NewProgressNotification(processed, total int) Notification {
	return Notification{
		JSONRPC: "2.0",
		Method:  MethodProgress,
		Params:  ProgressParams{Processed: processed, Total: total},
	}
}

// BuildParams are the parameters for the build method.
type BuildParams struct {
	// Paths are the root directories to index (required).
	Paths []string `json:"paths"`

	// ForceRebuild deletes the existing stores before indexing.
	ForceRebuild bool `json:"force_rebuild,omitempty"`
}

// Validate checks that required fields are present.
func (p *BuildParams) Validate() error {
	if len(p.Paths) == 0 {
		return fmt.Errorf("paths is required")
	}
	return nil
}

// SearchParams are the parameters for the search method.
type SearchParams struct {
	// Query is the search text (required; whitespace-only yields no
	// results).
	Query string `json:"query"`

	// UseRegex matches Query as a regular expression against names only.
	UseRegex bool `json:"use_regex,omitempty"`

	// Limit is the maximum number of results (default and cap: 1000).
	Limit int `json:"limit,omitempty"`
}

// ProgressParams is the payload of an index-progress notification.
type ProgressParams struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// BuildResult is the response to a build request.
type BuildResult struct {
	Status       string   `json:"status"`
	FilesIndexed int      `json:"files_indexed"`
	Errors       []string `json:"errors"`
	Message      string   `json:"message,omitempty"`
}

// StatusResult contains daemon and index status information.
type StatusResult struct {
	Running     bool   `json:"running"`
	PID         int    `json:"pid"`
	Uptime      string `json:"uptime"`
	IsReady     bool   `json:"is_ready"`
	Building    bool   `json:"building"`
	TotalFiles  int    `json:"total_files"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// PingResult is the response to a ping request.
type PingResult struct {
	Pong bool `json:"pong"`
}
