// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package openai

import (
	"context"
	"math"

	openaisdk "github.com/openai/openai-go"

	"github.com/photostack-dev/photostack/internal/provider"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

var _ provider.Embedder = (*Client)(nil)

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int { return c.cfg.Dimensions }

// EmbedText embeds text into a unit vector. Empty text embeds to the
// zero vector so callers can fuse it with an image vector without a
// special case.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return make([]float32, c.cfg.Dimensions), nil
	}
	return c.embed(ctx, text)
}

// EmbedImage embeds an image into a unit vector. The image travels as
// a base64 data URL, which multimodal embedding servers accept as
// input alongside plain text.
func (c *Client) EmbedImage(ctx context.Context, imagePath string) ([]float32, error) {
	dataURL, err := encodeImageDataURL(imagePath)
	if err != nil {
		return nil, err
	}
	return c.embed(ctx, dataURL)
}

func (c *Client) embed(ctx context.Context, input string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(c.cfg.EmbedModel),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{input},
		},
	})
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeProviderUpstreamFailure, "embedding request")
	}
	if len(resp.Data) == 0 {
		return nil, pserr.New(pserr.CodeProviderResponseInvalid, "embedding response has no data")
	}

	raw := resp.Data[0].Embedding
	if len(raw) != c.cfg.Dimensions {
		return nil, pserr.New(pserr.CodeProviderResponseInvalid, "embedding dimension mismatch",
			pserr.Field("want", c.cfg.Dimensions), pserr.Field("got", len(raw)))
	}

	vec := make([]float32, len(raw))
	for i, f := range raw {
		vec[i] = float32(f)
	}
	return normalize(vec), nil
}

// normalize scales v to unit length. The zero vector is returned
// unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
