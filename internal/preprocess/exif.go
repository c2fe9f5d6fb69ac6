// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package preprocess

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/photostack-dev/photostack/internal/store"
)

// ExtractEXIF pulls capture metadata (device, timestamp, orientation)
// out of the source image. Malformed or absent EXIF degrades to an
// empty result; this never fails ingestion.
func ExtractEXIF(path string) store.EXIFMetadata {
	var meta store.EXIFMetadata

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return meta
	}

	if tag, err := x.Get(exif.Make); err == nil {
		if s, err := tag.StringVal(); err == nil {
			meta.DeviceMake = s
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil {
			meta.DeviceModel = s
		}
	}
	if tag, err := x.Get(exif.DateTimeOriginal); err == nil {
		if s, err := tag.StringVal(); err == nil {
			meta.CapturedAt = s
		}
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			meta.Orientation = v
		}
	}

	raw := rawWalker{fields: map[string]any{}}
	_ = x.Walk(&raw)
	if len(raw.fields) > 0 {
		meta.Raw = raw.fields
	}

	return meta
}

// readOrientation returns the EXIF orientation value (1-8) for the
// auto-orient stage.
func readOrientation(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return 0, err
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0, err
	}
	return tag.Int(0)
}

type rawWalker struct {
	fields map[string]any
}

func (w *rawWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.fields[string(name)] = tag.String()
	return nil
}
