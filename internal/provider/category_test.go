// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package provider_test

import (
	"testing"

	"github.com/photostack-dev/photostack/internal/provider"
	"github.com/photostack-dev/photostack/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want store.Category
	}{
		{"receipt", store.CategoryReceipt},
		{"Receipt", store.CategoryReceipt},
		{"  invoice  ", store.CategoryInvoice},
		{"store receipt", store.CategoryReceipt},
		{"utility invoice / bill", store.CategoryInvoice},
		{"serial number plate", store.CategorySerialPlate},
		{"license plate", store.CategorySerialPlate},
		{"whiteboard photo", store.CategoryWhiteboard},
		{"phone screenshot", store.CategoryScreenshot},
		{"handwriting", store.CategoryHandwrittenNotes},
		{"handwritten note", store.CategoryHandwrittenNotes},
		{"application form", store.CategoryForm},
		{"typed document", store.CategoryDocument},
		{"doc", store.CategoryDocument},
		{"business card", store.CategoryInfoCard},
		{"photo of an object", store.CategoryPhotoOfObject},
		{"id_card", store.CategoryIDCard},
		{"landscape", store.CategoryOther},
		{"", store.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, provider.NormalizeCategory(tt.raw))
		})
	}
}

func TestNormalizeCategoryExactBeatsSubstring(t *testing.T) {
	// "form" is a substring of "info_card"-adjacent labels but exact
	// members of the closed set must map to themselves.
	for _, c := range store.Categories() {
		assert.Equal(t, c, provider.NormalizeCategory(string(c)))
	}
}
