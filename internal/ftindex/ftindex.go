// Package ftindex wraps a Bleve index over file descriptors.
//
// The schema is fixed: name and path are tokenized text, size, modified
// and is_folder are stored values. Document identity is the descriptor
// ID, so re-adding a path replaces its document.
package ftindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/crosseverything/crosseverything/internal/entity"
)

const (
	fieldName     = "name"
	fieldPath     = "path"
	fieldSize     = "size"
	fieldModified = "modified"
	fieldIsFolder = "is_folder"
)

// MaxLimit is the hard cap on search results per query.
const MaxLimit = 1000

// nameBoost ranks filename matches above path-only matches in parsed
// queries.
const nameBoost = 2.0

// Index is a full-text index over file descriptors.
type Index struct {
	mu     sync.RWMutex
	idx    bleve.Index
	path   string
	closed bool
}

// Match is one search hit.
type Match struct {
	Descriptor entity.FileDescriptor
	Score      float64
}

// Open opens the index at path if one exists, otherwise creates the
// schema and an empty index. Parent directories are created as needed.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	var idx bleve.Index
	var err error
	if _, statErr := os.Stat(filepath.Join(path, "index_meta.json")); statErr == nil {
		idx, err = bleve.Open(path)
	} else {
		idx, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index %s: %w", path, err)
	}

	return &Index{idx: idx, path: path}, nil
}

// buildMapping defines the fixed five-field schema.
func buildMapping() mapping.IndexMapping {
	idxMapping := bleve.NewIndexMapping()
	idxMapping.DefaultAnalyzer = "standard"

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	text := bleve.NewTextFieldMapping()
	text.Analyzer = "standard"
	text.Store = true
	text.Index = true

	num := bleve.NewNumericFieldMapping()
	num.Store = true
	num.Index = false

	date := bleve.NewDateTimeFieldMapping()
	date.Store = true
	date.Index = false

	boolean := bleve.NewBooleanFieldMapping()
	boolean.Store = true
	boolean.Index = false

	doc.AddFieldMappingsAt(fieldName, text)
	doc.AddFieldMappingsAt(fieldPath, text)
	doc.AddFieldMappingsAt(fieldSize, num)
	doc.AddFieldMappingsAt(fieldModified, date)
	doc.AddFieldMappingsAt(fieldIsFolder, boolean)

	idxMapping.DefaultMapping = doc
	return idxMapping
}

// Path returns the on-disk location of the index.
func (i *Index) Path() string {
	return i.path
}

// Writer batches document additions. Adds become visible to Search only
// after Commit.
type Writer struct {
	index *Index
	batch *bleve.Batch
}

// NewWriter creates a batch writer for the index.
func (i *Index) NewWriter() *Writer {
	return &Writer{index: i, batch: i.idx.NewBatch()}
}

// Add queues a descriptor document.
func (w *Writer) Add(d entity.FileDescriptor) error {
	doc := map[string]any{
		fieldName:     d.Name,
		fieldPath:     d.Path,
		fieldSize:     float64(d.Size),
		fieldModified: d.ModifiedTime(),
		fieldIsFolder: d.IsFolder,
	}
	if err := w.batch.Index(d.ID, doc); err != nil {
		return fmt.Errorf("failed to batch document %s: %w", d.Path, err)
	}
	return nil
}

// Delete removes a single document by descriptor ID. Deleting an
// absent document is not an error.
func (i *Index) Delete(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return fmt.Errorf("index is closed")
	}
	if err := i.idx.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return nil
}

// Commit applies every queued add in one batch and makes the documents
// durably visible. The writer is reset and may be reused.
func (i *Index) Commit(w *Writer) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return fmt.Errorf("index is closed")
	}

	if err := i.idx.Batch(w.batch); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	w.batch.Reset()
	return nil
}

// Search executes a query and returns matches in descending relevance
// order, capped at min(limit, MaxLimit).
//
// With useRegex, text is compiled as a regular expression matched
// against the name field only; callers validate the pattern first.
// Otherwise text is matched against name and path, with name matches
// boosted 2x. Each call reads the latest committed snapshot; an
// uncommitted writer batch is never visible.
func (i *Index) Search(ctx context.Context, text string, useRegex bool, limit int) ([]Match, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(text) == "" {
		return []Match{}, nil
	}

	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	var q bquery.Query
	if useRegex {
		rq := bleve.NewRegexpQuery(text)
		rq.SetField(fieldName)
		q = rq
	} else {
		nameQ := bleve.NewMatchQuery(text)
		nameQ.SetField(fieldName)
		nameQ.SetBoost(nameBoost)
		pathQ := bleve.NewMatchQuery(text)
		pathQ.SetField(fieldPath)
		q = bleve.NewDisjunctionQuery(nameQ, pathQ)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{fieldName, fieldPath, fieldSize, fieldModified, fieldIsFolder}

	res, err := i.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		d := entity.FileDescriptor{ID: hit.ID}
		if v, ok := hit.Fields[fieldName].(string); ok {
			d.Name = v
		}
		if v, ok := hit.Fields[fieldPath].(string); ok {
			d.Path = v
		}
		if v, ok := hit.Fields[fieldSize].(float64); ok {
			d.Size = uint64(v)
		}
		if v, ok := hit.Fields[fieldModified].(string); ok {
			if t, perr := time.Parse(time.RFC3339, v); perr == nil {
				d.Modified = t.Unix()
			}
		}
		if v, ok := hit.Fields[fieldIsFolder].(bool); ok {
			d.IsFolder = v
		}
		out = append(out, Match{Descriptor: d, Score: hit.Score})
	}

	return out, nil
}

// DocCount returns the number of committed documents.
func (i *Index) DocCount() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return 0, fmt.Errorf("index is closed")
	}
	return i.idx.DocCount()
}

// Close closes the index. Safe to call more than once.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	if i.idx != nil {
		return i.idx.Close()
	}
	return nil
}
