// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/photostack-dev/photostack/internal/provider"
	"github.com/photostack-dev/photostack/internal/store"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

var _ provider.AutoTagger = (*Client)(nil)

// Model returns the auto-tag model identifier.
func (c *Client) Model() string { return c.cfg.AutoTagModel }

const autoTagPromptTemplate = `You are PhotoStack's AutoTagger.

Your job is to classify the given image into ONE of these categories:

%s

And generate 3-10 short tags that will help the user search later.

Guidelines:
- If the image clearly shows a store receipt or purchase slip, use "receipt".
- If it is a bill or invoice with charges, use "invoice".
- If it shows a serial number plate or label on a device, use "serial_plate".
- If it is a standard document (letter, printout, typed text), use "document".
- If it is a form to fill in, use "form".
- If it is handwritten notes on paper, use "handwritten_notes".
- If it is a whiteboard with writing, use "whiteboard".
- If it is a phone or computer screenshot, use "screenshot".
- If it is a small card or label with info (medication card, business card), use "info_card".
- If it is mostly an object (generator, appliance, tool), use "photo_of_object".
- Use "other" if none of these obviously fit.

You MUST respond in JSON ONLY, with this structure:

{"category": "<one of: %s>", "tags": ["short", "searchable", "tags"], "confidence": 0.0}

If you are unsure, pick the closest reasonable category and use low confidence.
If OCR text is provided, use it to help understand context.`

// Tag classifies the image into the closed category set plus free-form
// tags. An unparseable response or out-of-set category is normalized
// via the keyword fallback chain; a failed capability call returns an
// error and the caller continues without tags.
func (c *Client) Tag(ctx context.Context, imagePath, ocrText string) (*provider.TagResult, error) {
	dataURL, err := encodeImageDataURL(imagePath)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(store.Categories()))
	for _, cat := range store.Categories() {
		names = append(names, string(cat))
	}
	joined := strings.Join(names, ", ")

	prompt := fmt.Sprintf(autoTagPromptTemplate, joined, joined)
	if ocrText != "" {
		prompt += "\n\nOCR TEXT (may be noisy, but useful):\n" + truncate(ocrText, 4000)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.AutoTagModel),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(prompt),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeProviderUpstreamFailure, "auto-tag request")
	}
	if len(resp.Choices) == 0 {
		return nil, pserr.New(pserr.CodeProviderResponseInvalid, "auto-tag response has no choices")
	}

	return parseTagResponse(resp.Choices[0].Message.Content), nil
}

type tagResponse struct {
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// parseTagResponse extracts the JSON object from a possibly chatty
// model reply and normalizes it onto the closed category set. A reply
// with no parseable JSON degrades to category "other" with no tags.
func parseTagResponse(raw string) *provider.TagResult {
	jsonStr := extractJSONObject(raw)

	var parsed tagResponse
	rawMap := map[string]any{}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return &provider.TagResult{Category: provider.NormalizeCategory(raw), Raw: rawMap}
	}
	_ = json.Unmarshal([]byte(jsonStr), &rawMap)

	tags := make([]string, 0, len(parsed.Tags))
	for _, t := range parsed.Tags {
		if s := strings.TrimSpace(t); s != "" {
			tags = append(tags, s)
		}
	}

	conf := parsed.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return &provider.TagResult{
		Category:   provider.NormalizeCategory(parsed.Category),
		Tags:       tags,
		Confidence: conf,
		Raw:        rawMap,
	}
}

// extractJSONObject returns the substring between the first '{' and
// the last '}', or the input unchanged when no such pair exists. Some
// models wrap their JSON in prose.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
