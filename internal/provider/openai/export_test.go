// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package openai

// Test-only exports.
var (
	ParseTagResponse  = parseTagResponse
	ExtractJSONObject = extractJSONObject
	Normalize         = normalize
)
