// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package provider

import (
	"strings"

	"github.com/photostack-dev/photostack/internal/store"
)

// NormalizeCategory maps an open-ended model label onto the closed
// category set. Exact matches win; otherwise keyword substrings are
// tried in order; everything else falls back to "other". Pure and
// independent of any capability call.
func NormalizeCategory(raw string) store.Category {
	label := strings.ToLower(strings.TrimSpace(raw))

	for _, c := range store.Categories() {
		if label == string(c) {
			return c
		}
	}

	switch {
	case strings.Contains(label, "receipt"):
		return store.CategoryReceipt
	case strings.Contains(label, "invoice"):
		return store.CategoryInvoice
	case strings.Contains(label, "id card"), strings.Contains(label, "identity"):
		return store.CategoryIDCard
	case strings.Contains(label, "serial"), strings.Contains(label, "plate"):
		return store.CategorySerialPlate
	case strings.Contains(label, "whiteboard"):
		return store.CategoryWhiteboard
	case strings.Contains(label, "screenshot"):
		return store.CategoryScreenshot
	case strings.Contains(label, "handwrit"):
		return store.CategoryHandwrittenNotes
	case strings.Contains(label, "form"):
		return store.CategoryForm
	case strings.Contains(label, "document"), strings.Contains(label, "doc"):
		return store.CategoryDocument
	case strings.Contains(label, "info"), strings.Contains(label, "card"):
		return store.CategoryInfoCard
	case strings.Contains(label, "object"):
		return store.CategoryPhotoOfObject
	}

	return store.CategoryOther
}
