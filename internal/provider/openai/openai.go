// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package openai implements every PhotoStack capability (embedding,
// OCR, auto-tagging, generation) over OpenAI-compatible endpoints.
// Pointing BaseURL at a local inference server (Ollama, vLLM, a CLIP
// embedding server) works the same way.
package openai

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// Config holds connection and model selection for all capabilities.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for local inference servers and tests

	EmbedModel   string
	AutoTagModel string
	OCRModel     string
	QAModel      string

	// Dimensions is the fixed output dimension of EmbedModel.
	Dimensions int
}

// Client implements provider.Embedder, provider.OCREngine,
// provider.AutoTagger, and provider.Generator.
type Client struct {
	client openaisdk.Client
	cfg    Config
}

// New creates a capability client. The API key may be empty when
// BaseURL points at an unauthenticated local server.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, pserr.New(pserr.CodeProviderRequestInvalid, "either api_key or base_url is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, pserr.New(pserr.CodeProviderRequestInvalid, "embedding dimension must be positive",
			pserr.Field("dimension", cfg.Dimensions))
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{client: openaisdk.NewClient(opts...), cfg: cfg}, nil
}

// encodeImageDataURL reads an image file and encodes it as a base64
// data URL for multimodal requests.
func encodeImageDataURL(imagePath string) (string, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return "", pserr.Wrapf(err, pserr.CodeProviderRequestInvalid, "reading image %s", imagePath)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(imagePath))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(raw)), nil
}
