// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package qa composes retrieved image records into a grounded prompt
// and calls the LLM capability once to synthesize an answer.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/photostack-dev/photostack/internal/provider"
	"github.com/photostack-dev/photostack/internal/retrieval"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// FallbackAnswer is returned when retrieval finds nothing; no LLM
// call is made in that case.
const FallbackAnswer = "I couldn't find any images that appear to answer that question."

const contextSeparator = "\n\n---\n\n"

const promptTemplate = `You are PhotoStack, an assistant that answers questions based on text extracted from the user's images.

User question:
%s

You have the following image records (ID, filename, OCR text, and metadata):

%s

Instructions:
- Answer the user's question ONLY using the information in these records.
- If you are not sure, say you cannot find the answer.
- If a specific ID clearly contains the answer, mention its ID in your explanation.
- Be concise and direct.

Answer:
`

// Response is the QA outcome: the answer, the records it was grounded
// on, and the untrimmed-model-output field (identical to Answer apart
// from whitespace trimming).
type Response struct {
	Answer    string            `json:"answer"`
	Matches   []retrieval.Match `json:"matches"`
	RawAnswer string            `json:"raw_answer"`
}

// Synthesizer answers questions over the image collection.
type Synthesizer struct {
	engine    *retrieval.Engine
	generator provider.Generator
}

// NewSynthesizer creates a Synthesizer over the given retrieval engine
// and generator.
func NewSynthesizer(engine *retrieval.Engine, generator provider.Generator) *Synthesizer {
	return &Synthesizer{engine: engine, generator: generator}
}

// Answer retrieves topK records for the question and synthesizes a
// grounded answer with a single generation call. Zero matches return
// the fixed fallback without calling the generator.
func (s *Synthesizer) Answer(ctx context.Context, question string, topK int, filters *retrieval.Filters) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return nil, pserr.New(pserr.CodeQAInvalidInput, "question cannot be empty")
	}

	matches, err := s.engine.SearchText(ctx, question, topK, filters)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		slog.Info("qa: no matches, returning fallback")
		return &Response{Answer: FallbackAnswer, Matches: []retrieval.Match{}, RawAnswer: ""}, nil
	}

	prompt := fmt.Sprintf(promptTemplate, question, buildContext(matches))

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeQAUpstreamFailure, "synthesizing answer")
	}

	answer := strings.TrimSpace(raw)
	return &Response{Answer: answer, Matches: matches, RawAnswer: answer}, nil
}

// buildContext renders one block per match, separator-joined.
func buildContext(matches []retrieval.Match) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		var b strings.Builder
		fmt.Fprintf(&b, "ID: %s\n", m.ID)
		fmt.Fprintf(&b, "Filename: %s", m.Filename)
		if m.OCRText != "" {
			b.WriteString("\nOCR text:\n")
			b.WriteString(m.OCRText)
		}
		if m.Device != "" {
			fmt.Fprintf(&b, "\nDevice: %s", m.Device)
		}
		if m.CapturedAt != "" {
			fmt.Fprintf(&b, "\nCaptured: %s", m.CapturedAt)
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, contextSeparator)
}
