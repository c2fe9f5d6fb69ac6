// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package provider defines the external capability contracts PhotoStack
// depends on: embedding, OCR, auto-tagging, and text generation. All
// implementations are explicitly constructed and injected; there is no
// process-wide capability state.
package provider

import (
	"context"

	"github.com/photostack-dev/photostack/internal/store"
)

// Embedder turns an image and/or text into a fixed-dimension unit
// vector in a shared embedding space.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, imagePath string) ([]float32, error)
	Dimensions() int
}

// OCRSegment is one detected text region, in detection order.
type OCRSegment struct {
	Text       string
	Confidence float64
}

// OCREngine turns an image into ordered text segments with per-segment
// confidence.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) ([]OCRSegment, error)
}

// TagResult is a successful auto-tagging outcome. Category is always
// drawn from the closed set.
type TagResult struct {
	Category   store.Category
	Tags       []string
	Confidence float64
	Raw        map[string]any
}

// AutoTagger classifies an image into the closed category set and
// produces free-form search tags.
type AutoTagger interface {
	Tag(ctx context.Context, imagePath, ocrText string) (*TagResult, error)
	Model() string
}

// Generator is the black-box LLM text capability: prompt in, text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
