// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package retrieval_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/photostack-dev/photostack/internal/retrieval"
	"github.com/photostack-dev/photostack/internal/store"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueryStore struct {
	results   []store.VectorResult
	lastLimit int
}

func (f *fakeQueryStore) Upsert(context.Context, string, []float32, store.ImagePayload) error {
	return nil
}
func (f *fakeQueryStore) Query(_ context.Context, _ []float32, limit int) ([]store.VectorResult, error) {
	f.lastLimit = limit
	if limit < len(f.results) {
		return f.results[:limit], nil
	}
	return f.results, nil
}
func (f *fakeQueryStore) Delete(context.Context, []string) error { return nil }
func (f *fakeQueryStore) Close() error                           { return nil }

type fakeTextEmbedder struct {
	vec []float32
	err error
}

func (f *fakeTextEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}
func (f *fakeTextEmbedder) EmbedImage(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}
func (f *fakeTextEmbedder) Dimensions() int { return len(f.vec) }

func rawResults(n int) []store.VectorResult {
	out := make([]store.VectorResult, 0, n)
	for i := 0; i < n; i++ {
		tags := []string{"misc"}
		if i == 3 {
			tags = []string{"beach"}
		}
		out = append(out, store.VectorResult{
			ID:    fmt.Sprintf("r%d", i),
			Score: 1 - float64(i)*0.05,
			Payload: store.ImagePayload{
				ID:         fmt.Sprintf("r%d", i),
				Filename:   fmt.Sprintf("img%d.jpg", i),
				IngestedAt: time.Now().UTC(),
				Tags:       tags,
			},
		})
	}
	return out
}

func TestSearch_NoFiltersFetchesExactTopK(t *testing.T) {
	vs := &fakeQueryStore{results: rawResults(30)}
	e := retrieval.NewEngine(vs, &fakeTextEmbedder{})

	matches, err := e.Search(context.Background(), []float32{1}, 8, nil)
	require.NoError(t, err)
	assert.Equal(t, 8, vs.lastLimit)
	assert.Len(t, matches, 8)
}

func TestSearch_FiltersTriggerOverFetch(t *testing.T) {
	vs := &fakeQueryStore{results: rawResults(30)}
	e := retrieval.NewEngine(vs, &fakeTextEmbedder{})

	matches, err := e.Search(context.Background(), []float32{1}, 10, &retrieval.Filters{Tag: "beach"})
	require.NoError(t, err)
	assert.Equal(t, 30, vs.lastLimit)
	// Only 1 of the raw matches carries the tag.
	require.Len(t, matches, 1)
	assert.Equal(t, "r3", matches[0].ID)
}

func TestSearch_ShortfallReturnsFewerNotError(t *testing.T) {
	vs := &fakeQueryStore{results: rawResults(4)}
	e := retrieval.NewEngine(vs, &fakeTextEmbedder{})

	matches, err := e.Search(context.Background(), []float32{1}, 10, &retrieval.Filters{Tag: "misc"})
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestSearch_TruncatesToTopKAfterFiltering(t *testing.T) {
	vs := &fakeQueryStore{results: rawResults(30)}
	e := retrieval.NewEngine(vs, &fakeTextEmbedder{})

	matches, err := e.Search(context.Background(), []float32{1}, 2, &retrieval.Filters{Tag: "misc"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)
	// Order is preserved: best scores first.
	assert.Equal(t, "r0", matches[0].ID)
	assert.Equal(t, "r1", matches[1].ID)
}

func TestSearchText_EmptyQueryRejected(t *testing.T) {
	e := retrieval.NewEngine(&fakeQueryStore{}, &fakeTextEmbedder{vec: []float32{1}})

	_, err := e.SearchText(context.Background(), "   ", 5, nil)
	require.Error(t, err)
	assert.True(t, pserr.IsInvalidInput(err))
}

func TestSearchText_EmbedsAndSearches(t *testing.T) {
	vs := &fakeQueryStore{results: rawResults(5)}
	e := retrieval.NewEngine(vs, &fakeTextEmbedder{vec: []float32{1, 0}})

	matches, err := e.SearchText(context.Background(), "sunset", 3, nil)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}
