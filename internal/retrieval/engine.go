// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package retrieval executes text and image queries against the
// vector store, applying AND-ed predicate filters with over-fetch
// compensation.
package retrieval

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/photostack-dev/photostack/internal/provider"
	"github.com/photostack-dev/photostack/internal/store"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// overFetchFactor leaves headroom for predicate rejection when
// filters are present. A heuristic, not a guarantee: heavy filters
// can still return fewer than topK results.
const overFetchFactor = 3

// Match is one retrieval hit: similarity score plus the denormalized
// payload fields filters and callers need. Transient, never persisted.
type Match struct {
	ID            string    `json:"id"`
	Score         float64   `json:"score"`
	Filename      string    `json:"filename"`
	RawPath       string    `json:"path_raw"`
	ProcessedPath string    `json:"path_processed,omitempty"`
	Hash          string    `json:"hash,omitempty"`
	IngestedAt    time.Time `json:"ingested_at,omitzero"`
	OCRText       string    `json:"ocr_text,omitempty"`
	OCRConfidence *float64  `json:"ocr_confidence,omitempty"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Device        string    `json:"device,omitempty"`
	CapturedAt    string    `json:"captured_at,omitempty"`
}

// Engine runs similarity queries with filter compensation.
type Engine struct {
	vectors  store.VectorStore
	embedder provider.Embedder
}

// NewEngine creates a retrieval engine over the given store and
// embedder.
func NewEngine(vectors store.VectorStore, embedder provider.Embedder) *Engine {
	return &Engine{vectors: vectors, embedder: embedder}
}

// Search runs a nearest-neighbor query for the vector. With filters
// present it over-fetches topK*3 raw results, filters locally, and
// truncates; a shortfall returns fewer results, never an error.
func (e *Engine) Search(ctx context.Context, queryVector []float32, topK int, filters *Filters) ([]Match, error) {
	limit := topK
	if !filters.Empty() {
		limit = topK * overFetchFactor
	}

	results, err := e.vectors.Query(ctx, queryVector, limit)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeRetrievalStoreFailure, "querying vector store")
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, matchFromResult(r))
	}

	matches = filters.Apply(matches, time.Now().UTC())
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// SearchText embeds the query text and searches.
func (e *Engine) SearchText(ctx context.Context, query string, topK int, filters *Filters) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, pserr.New(pserr.CodeRetrievalInvalidInput, "query cannot be empty")
	}

	vec, err := e.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeRetrievalStoreFailure, "embedding query text")
	}

	slog.Info("retrieval: text search", "top_k", topK, "filtered", !filters.Empty())
	return e.Search(ctx, vec, topK, filters)
}

// SearchImage embeds the query image and searches.
func (e *Engine) SearchImage(ctx context.Context, imagePath string, topK int, filters *Filters) ([]Match, error) {
	vec, err := e.embedder.EmbedImage(ctx, imagePath)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeRetrievalStoreFailure, "embedding query image")
	}

	slog.Info("retrieval: image search", "top_k", topK, "filtered", !filters.Empty())
	return e.Search(ctx, vec, topK, filters)
}

func matchFromResult(r store.VectorResult) Match {
	p := r.Payload
	return Match{
		ID:            r.ID,
		Score:         r.Score,
		Filename:      p.Filename,
		RawPath:       p.RawPath,
		ProcessedPath: p.ProcessedPath,
		Hash:          p.Hash,
		IngestedAt:    p.IngestedAt,
		OCRText:       p.OCRText,
		OCRConfidence: p.OCRConfidence,
		Category:      string(p.Category),
		Tags:          p.Tags,
		Device:        p.EXIF.DeviceModel,
		CapturedAt:    p.EXIF.CapturedAt,
	}
}
