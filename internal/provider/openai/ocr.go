// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package openai

import (
	"context"
	"encoding/json"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/photostack-dev/photostack/internal/provider"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

var _ provider.OCREngine = (*Client)(nil)

const ocrPrompt = `Read ALL text visible in this image, top to bottom, left to right.

Respond in JSON ONLY:

{"segments": [{"text": "<one line or text region>", "confidence": 0.0}]}

One entry per line or distinct text region, in reading order, with a
confidence between 0 and 1 for each. If the image contains no text,
return {"segments": []}.`

type ocrResponse struct {
	Segments []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
}

// Recognize extracts ordered text segments from an image via a
// vision-capable model.
func (c *Client) Recognize(ctx context.Context, imagePath string) ([]provider.OCRSegment, error) {
	dataURL, err := encodeImageDataURL(imagePath)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.OCRModel),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(ocrPrompt),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	})
	if err != nil {
		return nil, pserr.Wrap(err, pserr.CodeProviderUpstreamFailure, "ocr request")
	}
	if len(resp.Choices) == 0 {
		return nil, pserr.New(pserr.CodeProviderResponseInvalid, "ocr response has no choices")
	}

	var parsed ocrResponse
	if err := json.Unmarshal([]byte(extractJSONObject(resp.Choices[0].Message.Content)), &parsed); err != nil {
		return nil, pserr.Wrap(err, pserr.CodeProviderResponseInvalid, "parsing ocr response")
	}

	segments := make([]provider.OCRSegment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		if s.Text == "" {
			continue
		}
		segments = append(segments, provider.OCRSegment{Text: s.Text, Confidence: s.Confidence})
	}
	return segments, nil
}
