// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package openai

import (
	"context"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"github.com/photostack-dev/photostack/internal/provider"
	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

var _ provider.Generator = (*Client)(nil)

// Generate sends a single non-streaming completion request and returns
// the trimmed text. No retry.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.QAModel),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", pserr.Wrap(err, pserr.CodeProviderUpstreamFailure, "generate request")
	}
	if len(resp.Choices) == 0 {
		return "", pserr.New(pserr.CodeProviderResponseInvalid, "generate response has no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
