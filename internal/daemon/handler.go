package daemon

import (
	"context"
	"time"

	"github.com/crosseverything/crosseverything/internal/build"
	"github.com/crosseverything/crosseverything/internal/search"
	"github.com/crosseverything/crosseverything/internal/state"
)

// Handler is the production RequestHandler, wiring the build
// coordinator and the search service to the RPC surface.
type Handler struct {
	dataDir  string
	state    *state.State
	searcher *search.Service
}

// NewHandler creates a handler over the shared build state.
func NewHandler(dataDir string, st *state.State, searcher *search.Service) *Handler {
	return &Handler{
		dataDir:  dataDir,
		state:    st,
		searcher: searcher,
	}
}

// HandleBuild runs a build, forwarding coordinator progress to the
// per-request sink. Concurrent requests are rejected inside the
// coordinator, so constructing one per request is safe.
func (h *Handler) HandleBuild(ctx context.Context, params BuildParams, sink ProgressSink) BuildResult {
	coord := build.New(build.Config{
		DataDir: h.dataDir,
		State:   h.state,
		OnProgress: func(p build.Progress) {
			if sink != nil {
				sink(p.Processed, p.Total)
			}
		},
	})

	rep := coord.Build(ctx, params.Paths, params.ForceRebuild)
	return BuildResult{
		Status:       rep.Status,
		FilesIndexed: rep.FilesIndexed,
		Errors:       rep.Errors,
		Message:      rep.Message,
	}
}

// HandleSearch executes a query against the search service.
func (h *Handler) HandleSearch(ctx context.Context, params SearchParams) (any, error) {
	return h.searcher.Search(ctx, params.Query, params.UseRegex, params.Limit)
}

// GetStatus reports the current index status. Server-level fields
// (PID, uptime) are filled in by the server.
func (h *Handler) GetStatus() StatusResult {
	snap := h.state.Snapshot()

	out := StatusResult{
		IsReady:    snap.IsReady,
		Building:   snap.Building,
		TotalFiles: snap.TotalFiles,
	}
	if !snap.LastUpdated.IsZero() {
		out.LastUpdated = snap.LastUpdated.UTC().Format(time.RFC3339)
	}
	return out
}
