// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package ingest drives one image through preprocessing, OCR,
// auto-tagging, embedding, and storage. Every step is independently
// toggleable and every step failure is isolated: only the initial
// raw-byte save is fatal to an ingestion.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/photostack-dev/photostack/internal/preprocess"
	"github.com/photostack-dev/photostack/internal/provider"
	"github.com/photostack-dev/photostack/internal/store"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// Options selects which ingestion steps run. Vision biases the
// preprocessing choice when OCR is off.
type Options struct {
	OCR        bool
	Vision     bool
	Preprocess bool
	Embed      bool
	AutoTag    bool
}

// Result is the canonical ingestion outcome. Steps that did not run
// leave their fields zero; Embedded reports whether a vector was
// stored.
type Result struct {
	ID            string             `json:"id"`
	Filename      string             `json:"filename"`
	RawPath       string             `json:"path_raw"`
	ProcessedPath string             `json:"path_processed,omitempty"`
	Hash          string             `json:"hash"`
	OCRText       string             `json:"ocr_text,omitempty"`
	OCRConfidence *float64           `json:"ocr_confidence,omitempty"`
	Embedded      bool               `json:"embedded"`
	Timestamp     time.Time          `json:"timestamp"`
	Payload       store.ImagePayload `json:"metadata"`
}

// Orchestrator owns the ingestion pipeline. All capabilities are
// injected; a nil capability behaves like its option being off.
type Orchestrator struct {
	dataDir     string
	preCfg      preprocess.Config
	embedder    provider.Embedder
	ocr         provider.OCREngine
	tagger      provider.AutoTagger
	vectors     store.VectorStore
	callTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPreprocessConfig overrides the default pipeline configuration.
func WithPreprocessConfig(cfg preprocess.Config) Option {
	return func(o *Orchestrator) { o.preCfg = cfg }
}

// WithCallTimeout sets the per-capability-call deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// New creates an Orchestrator writing raw and derived images under
// dataDir.
func New(dataDir string, embedder provider.Embedder, ocr provider.OCREngine,
	tagger provider.AutoTagger, vectors store.VectorStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dataDir:     dataDir,
		preCfg:      preprocess.DefaultConfig(),
		embedder:    embedder,
		ocr:         ocr,
		tagger:      tagger,
		vectors:     vectors,
		callTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest runs the full pipeline over raw image bytes. It returns an
// error only when the raw bytes cannot be persisted; every other step
// failure is logged, recorded as not-run, and ingestion continues.
func (o *Orchestrator) Ingest(ctx context.Context, raw []byte, filename string, opts Options) (*Result, error) {
	if len(raw) == 0 {
		return nil, pserr.New(pserr.CodeIngestInvalidInput, "empty image payload")
	}

	// 1. Persist raw bytes under a collision-free name. Fatal on failure.
	rawPath, err := o.saveRaw(raw, filename)
	if err != nil {
		return nil, err
	}
	slog.Info("ingest: saved raw image", "path", rawPath)

	// 2. Preprocess. The derived image, when produced, is the working
	// image for OCR, auto-tag, and embedding.
	var processedPath string
	if opts.Preprocess {
		processedPath = o.runPreprocess(rawPath, opts)
	}
	workPath := rawPath
	if processedPath != "" {
		workPath = processedPath
	}

	// 3. Content hash of the raw bytes: record identity, independent
	// of preprocessing choices.
	digest := sha256.Sum256(raw)
	hash := hex.EncodeToString(digest[:])

	// 4. Capture metadata from the source format.
	exifMeta := preprocess.ExtractEXIF(rawPath)

	// 5. OCR.
	var ocrText string
	var ocrConf *float64
	if opts.OCR && o.ocr != nil {
		ocrText, ocrConf = o.runOCR(ctx, workPath)
	}

	// 6. Auto-tagging.
	var tag *provider.TagResult
	if opts.AutoTag && o.tagger != nil {
		tag = o.runAutoTag(ctx, workPath, ocrText)
	}

	// 7. Fused embedding.
	var vector []float32
	if opts.Embed && o.embedder != nil {
		vector = o.runEmbed(ctx, workPath, ocrText)
	}

	now := time.Now().UTC()
	id := uuid.NewString()

	payload := store.ImagePayload{
		ID:            id,
		Filename:      filepath.Base(rawPath),
		RawPath:       rawPath,
		ProcessedPath: processedPath,
		Hash:          hash,
		IngestedAt:    now,
		OCRText:       ocrText,
		OCRConfidence: ocrConf,
		EXIF:          exifMeta,
	}
	if tag != nil {
		payload.Category = tag.Category
		payload.Tags = tag.Tags
		payload.AutoTag = &store.AutoTagInfo{Model: o.tagger.Model(), Confidence: tag.Confidence}
	}

	// 8. Store only when a vector exists; never write a placeholder.
	embedded := false
	if vector != nil {
		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		err := o.vectors.Upsert(callCtx, id, vector, payload)
		cancel()
		if err != nil {
			slog.Error("ingest: vector upsert failed", "id", id, "error", err)
		} else {
			embedded = true
		}
	}

	return &Result{
		ID:            id,
		Filename:      payload.Filename,
		RawPath:       rawPath,
		ProcessedPath: processedPath,
		Hash:          hash,
		OCRText:       ocrText,
		OCRConfidence: ocrConf,
		Embedded:      embedded,
		Timestamp:     now,
		Payload:       payload,
	}, nil
}

// saveRaw writes the raw bytes under a uuid-prefixed name so repeated
// uploads of the same filename never collide.
func (o *Orchestrator) saveRaw(raw []byte, filename string) (string, error) {
	if err := os.MkdirAll(o.dataDir, 0o755); err != nil {
		return "", pserr.Wrapf(err, pserr.CodeIngestSaveFailure, "creating data dir %s", o.dataDir)
	}

	base := filepath.Base(filename)
	if base == "." || base == "" || base == string(filepath.Separator) {
		base = "upload.jpg"
	}
	path := filepath.Join(o.dataDir, uuid.NewString()[:8]+"_"+base)

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", pserr.Wrapf(err, pserr.CodeIngestSaveFailure, "writing raw image %s", path)
	}
	return path, nil
}

// runPreprocess picks the pipeline: OCR bias wins, vision otherwise
// (including when neither flag is set, matching the upload default).
func (o *Orchestrator) runPreprocess(rawPath string, opts Options) string {
	var out string
	var err error
	if opts.OCR {
		out, err = preprocess.ForOCR(rawPath, o.preCfg)
	} else {
		out, err = preprocess.ForVision(rawPath, o.preCfg)
	}
	if err != nil {
		slog.Error("ingest: preprocess failed, using raw image", "path", rawPath, "error", err)
		return ""
	}
	slog.Info("ingest: produced derivative", "path", out)
	return out
}

// runOCR joins segments in detection order with newlines and averages
// their confidences. Zero segments leave both results absent.
func (o *Orchestrator) runOCR(ctx context.Context, workPath string) (string, *float64) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	segments, err := o.ocr.Recognize(callCtx, workPath)
	if err != nil {
		slog.Error("ingest: ocr failed", "path", workPath, "error", err)
		return "", nil
	}
	if len(segments) == 0 {
		return "", nil
	}

	text := ""
	var sum float64
	for i, s := range segments {
		if i > 0 {
			text += "\n"
		}
		text += s.Text
		sum += s.Confidence
	}
	avg := sum / float64(len(segments))
	return text, &avg
}

func (o *Orchestrator) runAutoTag(ctx context.Context, workPath, ocrText string) *provider.TagResult {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	tag, err := o.tagger.Tag(callCtx, workPath, ocrText)
	if err != nil {
		slog.Error("ingest: auto-tag failed", "path", workPath, "error", err)
		return nil
	}
	return tag
}

// runEmbed computes the fused vector. An image-embedding failure
// yields no vector at all; a text-embedding failure degrades to the
// image vector alone.
func (o *Orchestrator) runEmbed(ctx context.Context, workPath, ocrText string) []float32 {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	imgVec, err := o.embedder.EmbedImage(callCtx, workPath)
	cancel()
	if err != nil {
		slog.Error("ingest: image embedding failed", "path", workPath, "error", err)
		return nil
	}

	if ocrText == "" {
		return imgVec
	}

	callCtx, cancel = context.WithTimeout(ctx, o.callTimeout)
	txtVec, err := o.embedder.EmbedText(callCtx, ocrText)
	cancel()
	if err != nil {
		slog.Error("ingest: text embedding failed, using image vector only", "error", err)
		return imgVec
	}

	return FuseVectors(imgVec, txtVec)
}

// FuseVectors sums two unit vectors and renormalizes the result to
// unit length. Exact cancellation yields the zero vector rather than
// dividing by zero.
func FuseVectors(imgVec, txtVec []float32) []float32 {
	fused := make([]float32, len(imgVec))
	var sum float64
	for i := range imgVec {
		fused[i] = imgVec[i] + txtVec[i]
		sum += float64(fused[i]) * float64(fused[i])
	}
	if sum == 0 {
		return fused
	}
	norm := math.Sqrt(sum)
	for i := range fused {
		fused[i] = float32(float64(fused[i]) / norm)
	}
	return fused
}
