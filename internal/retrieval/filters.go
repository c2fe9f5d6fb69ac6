// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package retrieval

import (
	"strings"
	"time"
)

// Filters is the server-side predicate set applied after the vector
// query. All present predicates are AND-ed; zero-valued fields impose
// no constraint. String predicates are case-insensitive.
type Filters struct {
	Days          *int       `json:"days,omitempty"`
	DateMin       *time.Time `json:"date_min,omitempty"`
	DateMax       *time.Time `json:"date_max,omitempty"`
	Tag           string     `json:"tag,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	ContainsText  string     `json:"contains_text,omitempty"`
	ConfidenceMin *float64   `json:"confidence_min,omitempty"`
	Device        string     `json:"device,omitempty"`
	Category      string     `json:"category,omitempty"`
}

// Empty reports whether no predicate is set.
func (f *Filters) Empty() bool {
	if f == nil {
		return true
	}
	return f.Days == nil && f.DateMin == nil && f.DateMax == nil &&
		f.Tag == "" && len(f.Tags) == 0 && f.ContainsText == "" &&
		f.ConfidenceMin == nil && f.Device == "" && f.Category == ""
}

// Match evaluates the predicate set against one match. Pure function;
// now is injected so relative-day filters are testable.
func (f *Filters) Match(m Match, now time.Time) bool {
	if f == nil {
		return true
	}

	if f.Days != nil {
		if m.IngestedAt.IsZero() {
			return false
		}
		cutoff := now.AddDate(0, 0, -*f.Days)
		if m.IngestedAt.Before(cutoff) {
			return false
		}
	}

	if f.DateMin != nil && !m.IngestedAt.IsZero() && m.IngestedAt.Before(*f.DateMin) {
		return false
	}
	if f.DateMax != nil && !m.IngestedAt.IsZero() && m.IngestedAt.After(*f.DateMax) {
		return false
	}

	if f.Tag != "" {
		needle := strings.ToLower(f.Tag)
		found := false
		for _, t := range m.Tags {
			if strings.Contains(strings.ToLower(t), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(f.Tags) > 0 {
		have := make(map[string]bool, len(m.Tags))
		for _, t := range m.Tags {
			have[strings.ToLower(t)] = true
		}
		for _, required := range f.Tags {
			if !have[strings.ToLower(required)] {
				return false
			}
		}
	}

	if f.ContainsText != "" &&
		!strings.Contains(strings.ToLower(m.OCRText), strings.ToLower(f.ContainsText)) {
		return false
	}

	if f.ConfidenceMin != nil {
		if m.OCRConfidence == nil || *m.OCRConfidence < *f.ConfidenceMin {
			return false
		}
	}

	if f.Device != "" &&
		!strings.Contains(strings.ToLower(m.Device), strings.ToLower(f.Device)) {
		return false
	}

	if f.Category != "" && !strings.EqualFold(f.Category, m.Category) {
		return false
	}

	return true
}

// Apply filters matches, preserving order.
func (f *Filters) Apply(matches []Match, now time.Time) []Match {
	if f.Empty() {
		return matches
	}
	out := make([]Match, 0, len(matches))
	for _, m := range matches {
		if f.Match(m, now) {
			out = append(out, m)
		}
	}
	return out
}
