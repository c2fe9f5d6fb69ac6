// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package server

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/photostack-dev/photostack/internal/ingest"
	"github.com/photostack-dev/photostack/internal/qa"
	"github.com/photostack-dev/photostack/internal/retrieval"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// Ingestor runs the ingestion pipeline for one uploaded image.
type Ingestor interface {
	Ingest(ctx context.Context, raw []byte, filename string, opts ingest.Options) (*ingest.Result, error)
}

// Searcher answers similarity queries over the collection.
type Searcher interface {
	SearchText(ctx context.Context, query string, topK int, filters *retrieval.Filters) ([]retrieval.Match, error)
	SearchImage(ctx context.Context, imagePath string, topK int, filters *retrieval.Filters) ([]retrieval.Match, error)
}

// Answerer synthesizes grounded answers over the collection.
type Answerer interface {
	Answer(ctx context.Context, question string, topK int, filters *retrieval.Filters) (*qa.Response, error)
}

// Services are the domain dependencies behind the HTTP surface.
type Services struct {
	Ingestor Ingestor
	Searcher Searcher
	Answerer Answerer
}

// RegisterServices sets the service dependencies and registers routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ingest-image",
		Method:      http.MethodPost,
		Path:        "/photostack/ingest",
		Summary:     "Ingest an image",
		Tags:        []string{"ingest"},
	}, s.handleIngest)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-text",
		Method:      http.MethodPost,
		Path:        "/photostack/search/text",
		Summary:     "Search images by text",
		Tags:        []string{"search"},
	}, s.handleSearchText)

	huma.Register(s.api, huma.Operation{
		OperationID: "search-image",
		Method:      http.MethodPost,
		Path:        "/photostack/search/image",
		Summary:     "Search images by example image",
		Tags:        []string{"search"},
	}, s.handleSearchImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "query",
		Method:      http.MethodPost,
		Path:        "/photostack/query",
		Summary:     "Ask a question over the image collection",
		Tags:        []string{"qa"},
	}, s.handleQuery)
}

// --- Request/Response types for huma ---

type ingestInput struct {
	OCR        bool `query:"ocr" default:"true" doc:"Run OCR"`
	Vision     bool `query:"vision" doc:"Run the vision description pass"`
	Preprocess bool `query:"preprocess" default:"true" doc:"Preprocess before analysis"`
	Embed      bool `query:"embed" default:"true" doc:"Embed and index the image"`
	AutoTag    bool `query:"auto_tag" default:"true" doc:"Categorize and tag the image"`
	RawBody    multipart.Form
}
type ingestOutput struct {
	Body ingest.Result
}

type searchTextInput struct {
	Body struct {
		Query   string             `json:"query" minLength:"1" doc:"Search text"`
		TopK    int                `json:"top_k,omitempty" minimum:"1" maximum:"50" doc:"Result count, default 10"`
		Filters *retrieval.Filters `json:"filters,omitempty" doc:"Metadata filters, AND-composed"`
	}
}
type searchOutput struct {
	Body struct {
		Matches []retrieval.Match `json:"matches"`
	}
}

type searchImageInput struct {
	TopK    int `query:"top_k" minimum:"1" maximum:"50" default:"10" doc:"Result count"`
	RawBody multipart.Form
}

type queryInput struct {
	Body struct {
		Question string             `json:"question" minLength:"1" doc:"Question to answer"`
		TopK     int                `json:"top_k,omitempty" minimum:"1" maximum:"50" doc:"Records to retrieve, default 5"`
		Filters  *retrieval.Filters `json:"filters,omitempty" doc:"Metadata filters, AND-composed"`
	}
}
type queryOutput struct {
	Body qa.Response
}

// --- Handlers ---

func (s *Server) handleIngest(ctx context.Context, input *ingestInput) (*ingestOutput, error) {
	raw, filename, err := imageUpload(&input.RawBody)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Ingestor.Ingest(ctx, raw, filename, ingest.Options{
		OCR:        input.OCR,
		Vision:     input.Vision,
		Preprocess: input.Preprocess,
		Embed:      input.Embed,
		AutoTag:    input.AutoTag,
	})
	if err != nil {
		return nil, mapServiceError(err, "ingesting image")
	}
	return &ingestOutput{Body: *result}, nil
}

func (s *Server) handleSearchText(ctx context.Context, input *searchTextInput) (*searchOutput, error) {
	topK := input.Body.TopK
	if topK == 0 {
		topK = 10
	}

	matches, err := s.services.Searcher.SearchText(ctx, input.Body.Query, topK, input.Body.Filters)
	if err != nil {
		return nil, mapServiceError(err, "searching by text")
	}

	out := &searchOutput{}
	out.Body.Matches = matches
	if out.Body.Matches == nil {
		out.Body.Matches = []retrieval.Match{}
	}
	return out, nil
}

func (s *Server) handleSearchImage(ctx context.Context, input *searchImageInput) (*searchOutput, error) {
	raw, filename, err := imageUpload(&input.RawBody)
	if err != nil {
		return nil, err
	}

	filters, err := filtersFromForm(&input.RawBody)
	if err != nil {
		return nil, err
	}

	// The embedder works from a file path, so spool the upload.
	tmp, err := os.CreateTemp("", "photostack-query-*"+filepath.Ext(filename))
	if err != nil {
		return nil, huma.Error500InternalServerError("spooling query image", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return nil, huma.Error500InternalServerError("spooling query image", err)
	}
	tmp.Close()

	matches, err := s.services.Searcher.SearchImage(ctx, tmp.Name(), input.TopK, filters)
	if err != nil {
		return nil, mapServiceError(err, "searching by image")
	}

	out := &searchOutput{}
	out.Body.Matches = matches
	if out.Body.Matches == nil {
		out.Body.Matches = []retrieval.Match{}
	}
	return out, nil
}

func (s *Server) handleQuery(ctx context.Context, input *queryInput) (*queryOutput, error) {
	topK := input.Body.TopK
	if topK == 0 {
		topK = 5
	}

	resp, err := s.services.Answerer.Answer(ctx, input.Body.Question, topK, input.Body.Filters)
	if err != nil {
		return nil, mapServiceError(err, "answering question")
	}
	return &queryOutput{Body: *resp}, nil
}

// imageUpload extracts the "file" part and rejects non-image uploads.
func imageUpload(form *multipart.Form) ([]byte, string, error) {
	files := form.File["file"]
	if len(files) == 0 {
		return nil, "", huma.Error400BadRequest("multipart field \"file\" is required")
	}
	fh := files[0]

	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", huma.Error400BadRequest("uploaded file must be an image, got " + contentType)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, "", huma.Error500InternalServerError("opening upload", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, "", huma.Error500InternalServerError("reading upload", err)
	}
	return raw, fh.Filename, nil
}

// filtersFromForm decodes the optional JSON "filters" form value.
func filtersFromForm(form *multipart.Form) (*retrieval.Filters, error) {
	vals := form.Value["filters"]
	if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
		return nil, nil
	}
	var f retrieval.Filters
	if err := json.Unmarshal([]byte(vals[0]), &f); err != nil {
		return nil, huma.Error400BadRequest("invalid filters JSON: " + err.Error())
	}
	return &f, nil
}

func mapServiceError(err error, msg string) error {
	if pserr.IsInvalidInput(err) {
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError(msg, err)
}
