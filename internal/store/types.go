// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package store

import "time"

// Category is one of the closed set of image categories the
// auto-tagger maps every classification onto.
type Category string

const (
	CategoryReceipt          Category = "receipt"
	CategoryInvoice          Category = "invoice"
	CategoryIDCard           Category = "id_card"
	CategorySerialPlate      Category = "serial_plate"
	CategoryDocument         Category = "document"
	CategoryForm             Category = "form"
	CategoryHandwrittenNotes Category = "handwritten_notes"
	CategoryWhiteboard       Category = "whiteboard"
	CategoryScreenshot       Category = "screenshot"
	CategoryInfoCard         Category = "info_card"
	CategoryPhotoOfObject    Category = "photo_of_object"
	CategoryOther            Category = "other"
)

// Categories returns the closed category set in canonical order.
func Categories() []Category {
	return []Category{
		CategoryReceipt,
		CategoryInvoice,
		CategoryIDCard,
		CategorySerialPlate,
		CategoryDocument,
		CategoryForm,
		CategoryHandwrittenNotes,
		CategoryWhiteboard,
		CategoryScreenshot,
		CategoryInfoCard,
		CategoryPhotoOfObject,
		CategoryOther,
	}
}

// FileRecord is one row of the change index: the last (mtime, hash)
// pair actually sent for ingestion for a given path.
type FileRecord struct {
	Path         string
	MTime        time.Time
	Hash         string
	LastIngested time.Time
}

// EXIFMetadata is the capture metadata extracted from a source image.
// All fields are best-effort; a zero value means the tag was absent.
type EXIFMetadata struct {
	DeviceMake  string         `json:"device_make,omitempty"`
	DeviceModel string         `json:"device_model,omitempty"`
	CapturedAt  string         `json:"datetime_original,omitempty"`
	Orientation int            `json:"orientation,omitempty"`
	Raw         map[string]any `json:"raw_exif,omitempty"`
}

// AutoTagInfo records which model produced the tags and how sure it was.
type AutoTagInfo struct {
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
}

// ImagePayload is the durable per-image record stored alongside its
// vector. It is immutable after ingestion; re-ingesting the same
// content produces a second payload under a new ID.
type ImagePayload struct {
	ID            string       `json:"id"`
	Filename      string       `json:"filename"`
	RawPath       string       `json:"path_raw"`
	ProcessedPath string       `json:"path_processed,omitempty"`
	Hash          string       `json:"hash"`
	IngestedAt    time.Time    `json:"ingested_at"`
	OCRText       string       `json:"ocr_text,omitempty"`
	OCRConfidence *float64     `json:"ocr_confidence,omitempty"`
	Category      Category     `json:"category,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	EXIF          EXIFMetadata `json:"exif"`
	AutoTag       *AutoTagInfo `json:"autotag,omitempty"`
}

// VectorResult is one nearest-neighbor hit: similarity score plus the
// stored payload. Score is cosine similarity (higher = more similar).
type VectorResult struct {
	ID      string
	Score   float64
	Payload ImagePayload
}
