// Package archive keeps a full-text index of past meeting pages.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/plenumbot/internal/domain"
	"github.com/sha1n/plenumbot/internal/plenum"
	"github.com/sha1n/plenumbot/internal/wiki"
	"go.etcd.io/bbolt"
)

const (
	// IndexDir is the index directory inside the state directory
	IndexDir = "protocols.bleve"

	// MaxBatchSize is the maximum number of pages per batch
	MaxBatchSize = 100
)

// OpenTimeout bounds the wait for the index file lock held by another process.
var OpenTimeout = 2 * time.Second

// ErrBusy is returned when another process holds the archive open.
var ErrBusy = errors.New("protocol archive is in use by another process")

// Archive is a bleve index of meeting pages.
type Archive struct {
	mu    sync.RWMutex
	index bleve.Index
}

// IndexMapping returns the bleve mapping for protocol documents.
func IndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true
	content.IncludeTermVectors = true
	doc.AddFieldMappingsAt(domain.ProtocolFieldContent, content)

	for _, name := range []string{domain.ProtocolFieldNamespace, domain.ProtocolFieldDate, domain.ProtocolFieldYear} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		doc.AddFieldMappingsAt(name, field)
	}

	concluded := bleve.NewBooleanFieldMapping()
	concluded.Store = true
	doc.AddFieldMappingsAt(domain.ProtocolFieldConcluded, concluded)

	id := bleve.NewTextFieldMapping()
	id.Index = false
	id.Store = true
	doc.AddFieldMappingsAt(domain.ProtocolFieldID, id)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = standard.Name
	return m
}

// Open opens the archive in stateDir, creating it when missing. It fails
// with ErrBusy when the index stays locked for longer than OpenTimeout.
func Open(stateDir string) (*Archive, error) {
	path := filepath.Join(stateDir, IndexDir)

	index, err := bleve.OpenUsing(path, map[string]interface{}{
		"bolt_timeout": OpenTimeout.String(),
	})
	switch {
	case err == nil:
		return &Archive{index: index}, nil
	case errors.Is(err, bbolt.ErrTimeout):
		return nil, fmt.Errorf("%w: %s", ErrBusy, path)
	case !errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		return nil, fmt.Errorf("failed to open archive index: %w", err)
	}

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	index, err = bleve.New(path, IndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	return &Archive{index: index}, nil
}

// OpenInMemory creates an archive that lives only in memory.
func OpenInMemory() (*Archive, error) {
	index, err := bleve.NewMemOnly(IndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	return &Archive{index: index}, nil
}

// Document builds the archive document of a page. Pages whose last id
// segment is not a meeting date are not meeting pages and yield false.
func Document(id, text string) (domain.ProtocolDocument, bool) {
	segment := id
	if i := strings.LastIndex(id, ":"); i >= 0 {
		segment = id[i+1:]
	}
	date, err := plenum.ParseDate(segment, time.UTC)
	if err != nil {
		return domain.ProtocolDocument{}, false
	}

	return domain.ProtocolDocument{
		ID:        id,
		Namespace: wiki.Namespace(id),
		Date:      plenum.FormatDate(date),
		Year:      strconv.Itoa(date.Year()),
		Concluded: plenum.MeetingConcluded(text),
		Content:   text,
	}, true
}

// IndexPage adds or replaces a meeting page. It reports false for pages
// that are not meeting pages.
func (a *Archive) IndexPage(id, text string) (bool, error) {
	doc, ok := Document(id, text)
	if !ok {
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.index.Index(doc.ID, doc); err != nil {
		return false, fmt.Errorf("failed to index page %s: %w", id, err)
	}
	return true, nil
}

// Reindex indexes every meeting page below namespace and returns how many
// pages were indexed.
func (a *Archive) Reindex(ctx context.Context, store wiki.Store, namespace string) (int, error) {
	ids, err := store.List(ctx, namespace)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	batch := a.index.NewBatch()
	total := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		text, err := store.Get(ctx, id)
		if err != nil {
			return total, err
		}
		doc, ok := Document(id, text)
		if !ok {
			slog.Debug("Skipping non-meeting page", "page", id)
			continue
		}
		if err := batch.Index(doc.ID, doc); err != nil {
			slog.Warn("Failed to add page to batch", "page", id, "error", err)
			continue
		}

		if n := batch.Size(); n >= MaxBatchSize {
			if err := a.index.Batch(batch); err != nil {
				return total, fmt.Errorf("batch index failed: %w", err)
			}
			total += n
			batch.Reset()
		}
	}

	if batch.Size() > 0 {
		n := batch.Size()
		if err := a.index.Batch(batch); err != nil {
			return total, fmt.Errorf("final batch index failed: %w", err)
		}
		total += n
	}
	return total, nil
}

// Count returns the number of archived pages.
func (a *Archive) Count() (uint64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index.DocCount()
}

// Close closes the underlying index.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.index.Close()
}
