// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package ingest_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/photostack-dev/photostack/internal/ingest"
	"github.com/photostack-dev/photostack/internal/provider"
	"github.com/photostack-dev/photostack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- capability fakes ---

type fakeEmbedder struct {
	imageVec []float32
	textVec  []float32
	imageErr error
	textErr  error
}

func (f *fakeEmbedder) EmbedImage(context.Context, string) ([]float32, error) {
	return f.imageVec, f.imageErr
}
func (f *fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return f.textVec, f.textErr
}
func (f *fakeEmbedder) Dimensions() int { return len(f.imageVec) }

type fakeOCR struct {
	segments []provider.OCRSegment
	err      error
}

func (f *fakeOCR) Recognize(context.Context, string) ([]provider.OCRSegment, error) {
	return f.segments, f.err
}

type fakeTagger struct {
	result *provider.TagResult
	err    error
	calls  int
}

func (f *fakeTagger) Tag(context.Context, string, string) (*provider.TagResult, error) {
	f.calls++
	return f.result, f.err
}
func (f *fakeTagger) Model() string { return "fake-tagger" }

type fakeVectorStore struct {
	upserts   map[string]store.ImagePayload
	vectors   map[string][]float32
	upsertErr error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{upserts: map[string]store.ImagePayload{}, vectors: map[string][]float32{}}
}

func (f *fakeVectorStore) Upsert(_ context.Context, id string, vector []float32, payload store.ImagePayload) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts[id] = payload
	f.vectors[id] = vector
	return nil
}
func (f *fakeVectorStore) Query(context.Context, []float32, int) ([]store.VectorResult, error) {
	return nil, nil
}
func (f *fakeVectorStore) Delete(context.Context, []string) error { return nil }
func (f *fakeVectorStore) Close() error                           { return nil }

// ---

func TestIngest_OCRWithoutAutoTag(t *testing.T) {
	embedder := &fakeEmbedder{imageVec: []float32{1, 0, 0}, textVec: []float32{0, 1, 0}}
	ocr := &fakeOCR{segments: []provider.OCRSegment{
		{Text: "INVOICE #123", Confidence: 0.9},
		{Text: "TOTAL 42.00", Confidence: 0.7},
	}}
	vs := newFakeVectorStore()
	o := ingest.New(t.TempDir(), embedder, ocr, &fakeTagger{}, vs)

	res, err := o.Ingest(context.Background(), []byte("jpegbytes"), "invoice.jpg", ingest.Options{
		OCR: true, Embed: true,
	})
	require.NoError(t, err)

	assert.Contains(t, res.OCRText, "INVOICE #123")
	assert.Contains(t, res.OCRText, "TOTAL 42.00")
	require.NotNil(t, res.OCRConfidence)
	assert.InDelta(t, 0.8, *res.OCRConfidence, 1e-9)
	assert.Empty(t, res.Payload.Category)
	assert.True(t, res.Embedded)
	require.Len(t, vs.upserts, 1)
}

func TestIngest_EmptyPayloadRejected(t *testing.T) {
	o := ingest.New(t.TempDir(), &fakeEmbedder{}, &fakeOCR{}, &fakeTagger{}, newFakeVectorStore())
	_, err := o.Ingest(context.Background(), nil, "a.jpg", ingest.Options{})
	assert.Error(t, err)
}

func TestIngest_NoEmbedSkipsStore(t *testing.T) {
	vs := newFakeVectorStore()
	o := ingest.New(t.TempDir(), &fakeEmbedder{imageVec: []float32{1, 0}}, &fakeOCR{}, &fakeTagger{}, vs)

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{Embed: false})
	require.NoError(t, err)
	assert.False(t, res.Embedded)
	assert.Empty(t, vs.upserts)
}

func TestIngest_EmbedFailureIsIsolated(t *testing.T) {
	vs := newFakeVectorStore()
	embedder := &fakeEmbedder{imageErr: errors.New("connection refused")}
	o := ingest.New(t.TempDir(), embedder, &fakeOCR{}, &fakeTagger{}, vs)

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{Embed: true})
	require.NoError(t, err)
	assert.False(t, res.Embedded)
	assert.Empty(t, vs.upserts)
	assert.NotEmpty(t, res.Hash)
}

func TestIngest_UpsertFailureReportsNotEmbedded(t *testing.T) {
	vs := newFakeVectorStore()
	vs.upsertErr = errors.New("db locked")
	o := ingest.New(t.TempDir(), &fakeEmbedder{imageVec: []float32{1, 0}}, &fakeOCR{}, &fakeTagger{}, vs)

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{Embed: true})
	require.NoError(t, err)
	assert.False(t, res.Embedded)
}

func TestIngest_AutoTagFailureContinues(t *testing.T) {
	tagger := &fakeTagger{err: errors.New("model timeout")}
	o := ingest.New(t.TempDir(), &fakeEmbedder{imageVec: []float32{1, 0}}, &fakeOCR{}, tagger, newFakeVectorStore())

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{AutoTag: true, Embed: true})
	require.NoError(t, err)
	assert.Equal(t, 1, tagger.calls)
	assert.Empty(t, res.Payload.Category)
	assert.Nil(t, res.Payload.AutoTag)
	assert.True(t, res.Embedded)
}

func TestIngest_AutoTagRecordedInPayload(t *testing.T) {
	tagger := &fakeTagger{result: &provider.TagResult{
		Category: store.CategoryReceipt, Tags: []string{"grocery"}, Confidence: 0.8,
	}}
	vs := newFakeVectorStore()
	o := ingest.New(t.TempDir(), &fakeEmbedder{imageVec: []float32{1, 0}}, &fakeOCR{}, tagger, vs)

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{AutoTag: true, Embed: true})
	require.NoError(t, err)
	assert.Equal(t, store.CategoryReceipt, res.Payload.Category)
	assert.Equal(t, []string{"grocery"}, res.Payload.Tags)
	require.NotNil(t, res.Payload.AutoTag)
	assert.Equal(t, "fake-tagger", res.Payload.AutoTag.Model)
	assert.InDelta(t, 0.8, res.Payload.AutoTag.Confidence, 1e-9)
}

func TestIngest_DuplicateContentDistinctIDsSameHash(t *testing.T) {
	o := ingest.New(t.TempDir(), &fakeEmbedder{imageVec: []float32{1, 0}}, &fakeOCR{}, &fakeTagger{}, newFakeVectorStore())

	first, err := o.Ingest(context.Background(), []byte("same bytes"), "a.jpg", ingest.Options{Embed: true})
	require.NoError(t, err)
	second, err := o.Ingest(context.Background(), []byte("same bytes"), "a.jpg", ingest.Options{Embed: true})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Hash, second.Hash)
}

func TestIngest_ZeroOCRSegmentsLeaveConfidenceAbsent(t *testing.T) {
	o := ingest.New(t.TempDir(), &fakeEmbedder{imageVec: []float32{1, 0}}, &fakeOCR{}, &fakeTagger{}, newFakeVectorStore())

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{OCR: true, Embed: true})
	require.NoError(t, err)
	assert.Empty(t, res.OCRText)
	assert.Nil(t, res.OCRConfidence)
}

func TestFuseVectors_UnitNorm(t *testing.T) {
	fused := ingest.FuseVectors([]float32{1, 0, 0}, []float32{0, 1, 0})

	var sum float64
	for _, x := range fused {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestFuseVectors_ExactCancellation(t *testing.T) {
	fused := ingest.FuseVectors([]float32{1, 0}, []float32{-1, 0})
	assert.Equal(t, []float32{0, 0}, fused)
}

func TestIngest_FusedVectorStored(t *testing.T) {
	vs := newFakeVectorStore()
	embedder := &fakeEmbedder{imageVec: []float32{1, 0, 0}, textVec: []float32{0, 1, 0}}
	ocr := &fakeOCR{segments: []provider.OCRSegment{{Text: "hello", Confidence: 1}}}
	o := ingest.New(t.TempDir(), embedder, ocr, &fakeTagger{}, vs)

	res, err := o.Ingest(context.Background(), []byte("x"), "a.jpg", ingest.Options{OCR: true, Embed: true})
	require.NoError(t, err)
	require.True(t, res.Embedded)

	vec := vs.vectors[res.ID]
	require.Len(t, vec, 3)
	inv := float32(1 / math.Sqrt2)
	assert.InDelta(t, inv, vec[0], 1e-6)
	assert.InDelta(t, inv, vec[1], 1e-6)
}
