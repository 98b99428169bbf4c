// Package artifacts writes the per-stage JSON batch files of a pipeline run
// and reads label exports back in.
package artifacts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/druglabel/core"
	"github.com/poiesic/druglabel/storage"
)

// Artifact file names.
const (
	CleanedFile    = "items.json"
	StructuredFile = "structured_items.json"
	QueryReadyFile = "q_items.json"
)

// Writer writes artifacts under one directory.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates dir when missing.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifacts: create %s: %w", dir, err)
	}
	return &Writer{
		dir:    dir,
		logger: slog.Default().With("component", "artifacts"),
	}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteCleaned writes normalized documents to items.json.
func (w *Writer) WriteCleaned(docs []*core.Document) (string, error) {
	return w.write(CleanedFile, nonNil(docs))
}

// WriteStructured writes enriched documents, view blocks included, to
// structured_items.json.
func (w *Writer) WriteStructured(docs []*core.EnrichedDocument) (string, error) {
	return w.write(StructuredFile, nonNil(docs))
}

type queryReadyItem struct {
	SetID    string            `json:"setId"`
	DrugName string            `json:"drugName"`
	Slug     string            `json:"slug"`
	Fields   map[string]string `json:"fields"`
	Tags     core.TagSet       `json:"tags"`
}

// WriteQueryReady writes the flattened search form of docs to q_items.json.
func (w *Writer) WriteQueryReady(docs []*core.EnrichedDocument) (string, error) {
	items := make([]queryReadyItem, 0, len(docs))
	for _, doc := range docs {
		sd := storage.ToSearchDocument(doc)
		items = append(items, queryReadyItem{
			SetID:    sd.SetID,
			DrugName: sd.DrugName,
			Slug:     sd.Slug,
			Fields:   sd.Fields,
			Tags:     sd.Tags,
		})
	}
	return w.write(QueryReadyFile, items)
}

// write replaces name atomically with the indented JSON of v.
func (w *Writer) write(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("artifacts: %w: %v", storage.ErrSerializationFailed, err)
	}

	path := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("artifacts: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("artifacts: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("artifacts: write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("artifacts: rename %s: %w", name, err)
	}

	w.logger.Info("wrote artifact", "path", path, "bytes", len(data))
	return path, nil
}

// ReadDocuments reads a JSON array of label documents, such as a raw export
// or a cleaned artifact.
func ReadDocuments(path string) ([]*core.Document, error) {
	return readArray[*core.Document](path)
}

// ReadEnriched reads a structured artifact.
func ReadEnriched(path string) ([]*core.EnrichedDocument, error) {
	return readArray[*core.EnrichedDocument](path)
}

func readArray[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifacts: %w", err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("artifacts: %s: %w: %v", path, storage.ErrSerializationFailed, err)
	}
	return out, nil
}

// nonNil keeps empty batches encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
