// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package retrieval_test

import (
	"testing"
	"time"

	"github.com/photostack-dev/photostack/internal/retrieval"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int             { return &i }
func floatPtr(f float64) *float64   { return &f }
func timePtr(t time.Time) *time.Time { return &t }

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleMatch() retrieval.Match {
	conf := 0.85
	return retrieval.Match{
		ID:            "m1",
		Score:         0.9,
		Filename:      "beach.jpg",
		IngestedAt:    now.AddDate(0, 0, -2),
		OCRText:       "Sunset Beach Resort\nRoom 204",
		OCRConfidence: &conf,
		Category:      "photo_of_object",
		Tags:          []string{"Beach", "sunset", "vacation"},
		Device:        "iPhone 15 Pro",
	}
}

func TestFilters_NilMatchesEverything(t *testing.T) {
	var f *retrieval.Filters
	assert.True(t, f.Empty())
	assert.True(t, f.Match(sampleMatch(), now))
}

func TestFilters_Days(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{Days: intPtr(7)}).Match(m, now))
	assert.False(t, (&retrieval.Filters{Days: intPtr(1)}).Match(m, now))

	// Missing ingestion time fails a relative-day filter.
	m.IngestedAt = time.Time{}
	assert.False(t, (&retrieval.Filters{Days: intPtr(7)}).Match(m, now))
}

func TestFilters_DateRange(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{DateMin: timePtr(now.AddDate(0, 0, -3))}).Match(m, now))
	assert.False(t, (&retrieval.Filters{DateMin: timePtr(now.AddDate(0, 0, -1))}).Match(m, now))
	assert.True(t, (&retrieval.Filters{DateMax: timePtr(now)}).Match(m, now))
	assert.False(t, (&retrieval.Filters{DateMax: timePtr(now.AddDate(0, 0, -3))}).Match(m, now))
}

func TestFilters_TagSubstring(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{Tag: "beach"}).Match(m, now))
	assert.True(t, (&retrieval.Filters{Tag: "SUN"}).Match(m, now))
	assert.False(t, (&retrieval.Filters{Tag: "mountain"}).Match(m, now))
}

func TestFilters_RequiredTags(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{Tags: []string{"beach", "SUNSET"}}).Match(m, now))
	assert.False(t, (&retrieval.Filters{Tags: []string{"beach", "mountain"}}).Match(m, now))
}

func TestFilters_ContainsText(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{ContainsText: "room 204"}).Match(m, now))
	assert.False(t, (&retrieval.Filters{ContainsText: "invoice"}).Match(m, now))
}

func TestFilters_ConfidenceMin(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{ConfidenceMin: floatPtr(0.8)}).Match(m, now))
	assert.False(t, (&retrieval.Filters{ConfidenceMin: floatPtr(0.9)}).Match(m, now))

	m.OCRConfidence = nil
	assert.False(t, (&retrieval.Filters{ConfidenceMin: floatPtr(0.1)}).Match(m, now))
}

func TestFilters_DeviceAndCategory(t *testing.T) {
	m := sampleMatch()
	assert.True(t, (&retrieval.Filters{Device: "iphone"}).Match(m, now))
	assert.False(t, (&retrieval.Filters{Device: "pixel"}).Match(m, now))
	assert.True(t, (&retrieval.Filters{Category: "PHOTO_OF_OBJECT"}).Match(m, now))
	assert.False(t, (&retrieval.Filters{Category: "receipt"}).Match(m, now))
}

// Applying a union of predicate sets equals applying them in sequence.
func TestFilters_ANDComposition(t *testing.T) {
	matches := []retrieval.Match{sampleMatch()}
	other := sampleMatch()
	other.Tags = []string{"mountain"}
	other.Device = "Pixel 9"
	matches = append(matches, other)

	f1 := &retrieval.Filters{Tag: "beach"}
	f2 := &retrieval.Filters{Device: "iphone"}
	combined := &retrieval.Filters{Tag: "beach", Device: "iphone"}

	sequential := f2.Apply(f1.Apply(matches, now), now)
	union := combined.Apply(matches, now)
	assert.Equal(t, union, sequential)
	assert.Len(t, union, 1)
	assert.Equal(t, "m1", union[0].ID)
}

func TestFilters_ApplyPreservesOrder(t *testing.T) {
	a, b := sampleMatch(), sampleMatch()
	a.ID, b.ID = "first", "second"

	out := (&retrieval.Filters{Tag: "beach"}).Apply([]retrieval.Match{a, b}, now)
	assert.Equal(t, []string{"first", "second"}, []string{out[0].ID, out[1].ID})
}
