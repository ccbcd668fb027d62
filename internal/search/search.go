// Package search answers queries against the current full-text index.
//
// The service validates input, resolves the index through the shared
// build state on every call, and projects index matches into wire-ready
// results. It never blocks on a running build; searches during a rebuild
// see the previously promoted index.
package search

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/crosseverything/crosseverything/internal/errors"
	"github.com/crosseverything/crosseverything/internal/state"
)

// regexCacheSize bounds the compiled-pattern cache. Patterns are small;
// this is plenty for interactive use.
const regexCacheSize = 128

// Result is one search hit projected for callers. Modified is ISO-8601
// UTC at second precision.
type Result struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     uint64 `json:"size"`
	Modified string `json:"modified"`
	IsFolder bool   `json:"is_folder"`
}

// Response is the outcome of one query.
type Response struct {
	Results      []Result `json:"results"`
	TotalFound   int      `json:"total_found"`
	SearchTimeMs int64    `json:"search_time_ms"`
}

// Service executes queries against the index held by the build state.
type Service struct {
	state   *state.State
	regexes *lru.Cache[string, *regexp.Regexp]
}

// New creates a search service over the shared build state.
func New(st *state.State) *Service {
	cache, _ := lru.New[string, *regexp.Regexp](regexCacheSize)
	return &Service{state: st, regexes: cache}
}

// Search runs one query. An empty or whitespace-only query returns an
// empty response without touching the index. Limit is clamped to
// (0, 1000]; zero or negative means the maximum.
func (s *Service) Search(ctx context.Context, query string, useRegex bool, limit int) (*Response, error) {
	start := time.Now()

	idx := s.state.SearchIndex()
	if idx == nil {
		return nil, errors.New(errors.ErrCodeIndexNotReady,
			"index not built yet, call build first", nil)
	}

	if useRegex {
		if err := s.validateRegex(query); err != nil {
			return nil, err
		}
	}

	matches, err := idx.Search(ctx, query, useRegex, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeSearchFailed,
			"search failed", err).WithDetail("query", query)
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		d := m.Descriptor
		results = append(results, Result{
			Name:     d.Name,
			Path:     d.Path,
			Size:     d.Size,
			Modified: d.ModifiedTime().Format(time.RFC3339),
			IsFolder: d.IsFolder,
		})
	}

	elapsed := time.Since(start)
	slog.Debug("search complete",
		slog.String("query", query),
		slog.Bool("regex", useRegex),
		slog.Int("results", len(results)),
		slog.Duration("elapsed", elapsed))

	return &Response{
		Results:      results,
		TotalFound:   len(results),
		SearchTimeMs: elapsed.Milliseconds(),
	}, nil
}

// validateRegex compiles the pattern, caching successes. Compilation
// cost matters when a UI fires a query per keystroke.
func (s *Service) validateRegex(pattern string) error {
	if _, ok := s.regexes.Get(pattern); ok {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidRegex,
			"invalid regex pattern", err).WithDetail("pattern", pattern)
	}
	s.regexes.Add(pattern, re)
	return nil
}
