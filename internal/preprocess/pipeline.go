// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

// Package preprocess implements the deterministic image pipelines that
// produce OCR-optimized or vision-optimized derivatives of a source
// image. Each pipeline is a pure function of (source path, config):
// it writes a new file next to the source and never mutates it.
package preprocess

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	pserr "github.com/photostack-dev/photostack/pkg/errors"
)

// Config enumerates the pipeline options. The zero value is not
// useful; start from DefaultConfig.
type Config struct {
	AutoOrient      bool
	TargetLongEdge  int
	Denoise         bool
	EnhanceContrast bool
	Binarize        bool
	Deskew          bool
	Sharpen         bool
}

// DefaultConfig returns the documented defaults for both pipelines.
func DefaultConfig() Config {
	return Config{
		AutoOrient:      true,
		TargetLongEdge:  1600,
		Denoise:         true,
		EnhanceContrast: true,
		Binarize:        true,
		Deskew:          false,
		Sharpen:         true,
	}
}

// deskewMinAngle: rotations smaller than this are skipped as noise.
const deskewMinAngle = 0.5

// ForOCR runs the OCR-oriented pipeline: orient, resize, grayscale,
// denoise, CLAHE contrast, Otsu binarization, optional deskew. The
// derivative is written as <stem>_proc_ocr<ext> beside the source.
func ForOCR(path string, cfg Config) (string, error) {
	img, err := loadAndOrient(path, cfg.AutoOrient)
	if err != nil {
		return "", err
	}
	defer img.Close()

	resizeLongEdge(&img, cfg.TargetLongEdge)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	if cfg.Denoise {
		denoised := gocv.NewMat()
		gocv.FastNlMeansDenoisingWithParams(gray, &denoised, 30, 7, 21)
		gray.Close()
		gray = denoised
	}

	if cfg.EnhanceContrast {
		clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
		enhanced := gocv.NewMat()
		clahe.Apply(gray, &enhanced)
		clahe.Close()
		gray.Close()
		gray = enhanced
	}

	if cfg.Binarize {
		binary := gocv.NewMat()
		gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
		gray.Close()
		gray = binary
	}

	if cfg.Deskew {
		gray = deskew(gray)
	}

	out := derivedPath(path, "_proc_ocr")
	if ok := gocv.IMWrite(out, gray); !ok {
		return "", pserr.Errorf(pserr.CodePreprocessWriteFailure, "writing ocr derivative %s", out)
	}
	return out, nil
}

// ForVision runs the lighter vision pipeline: orient, resize, and an
// optional unsharp-style sharpen. The derivative is written as
// <stem>_proc_vis<ext> beside the source.
func ForVision(path string, cfg Config) (string, error) {
	img, err := loadAndOrient(path, cfg.AutoOrient)
	if err != nil {
		return "", err
	}
	defer img.Close()

	resizeLongEdge(&img, cfg.TargetLongEdge)

	if cfg.Sharpen {
		blurred := gocv.NewMat()
		gocv.GaussianBlur(img, &blurred, image.Pt(0, 0), 3, 3, gocv.BorderDefault)
		sharpened := gocv.NewMat()
		gocv.AddWeighted(img, 1.5, blurred, -0.5, 0, &sharpened)
		blurred.Close()
		img.Close()
		img = sharpened
	}

	out := derivedPath(path, "_proc_vis")
	if ok := gocv.IMWrite(out, img); !ok {
		return "", pserr.Errorf(pserr.CodePreprocessWriteFailure, "writing vision derivative %s", out)
	}
	return out, nil
}

// loadAndOrient decodes the image and applies the EXIF orientation so
// downstream stages see upright pixels. Orientation failures are not
// fatal; the image is used as decoded.
func loadAndOrient(path string, autoOrient bool) (gocv.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return gocv.Mat{}, pserr.Wrapf(err, pserr.CodePreprocessDecodeFailure, "source image %s", path)
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, pserr.Errorf(pserr.CodePreprocessDecodeFailure, "decoding image %s", path)
	}

	if autoOrient {
		if orientation, err := readOrientation(path); err == nil {
			applyOrientation(&img, orientation)
		}
	}

	return img, nil
}

// applyOrientation maps the eight EXIF orientation values onto
// rotate/flip operations. Value 1 (upright) is a no-op.
func applyOrientation(img *gocv.Mat, orientation int) {
	rotate := func(code gocv.RotateFlag) {
		rotated := gocv.NewMat()
		gocv.Rotate(*img, &rotated, code)
		img.Close()
		*img = rotated
	}
	flip := func(axis int) {
		flipped := gocv.NewMat()
		gocv.Flip(*img, &flipped, axis)
		img.Close()
		*img = flipped
	}

	switch orientation {
	case 2:
		flip(1)
	case 3:
		rotate(gocv.Rotate180Clockwise)
	case 4:
		flip(0)
	case 5:
		rotate(gocv.Rotate90Clockwise)
		flip(1)
	case 6:
		rotate(gocv.Rotate90Clockwise)
	case 7:
		rotate(gocv.Rotate90CounterClockwise)
		flip(1)
	case 8:
		rotate(gocv.Rotate90CounterClockwise)
	}
}

// resizeLongEdge downscales so the long edge is at most target pixels,
// preserving aspect ratio with area interpolation. Never upscales.
func resizeLongEdge(img *gocv.Mat, target int) {
	if target <= 0 {
		return
	}

	h, w := img.Rows(), img.Cols()
	longEdge := max(h, w)
	if longEdge <= target {
		return
	}

	scale := float64(target) / float64(longEdge)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Pt(newW, newH), 0, 0, gocv.InterpolationArea)
	img.Close()
	*img = resized
}

// deskew estimates the dominant text angle from the minimum-area
// rectangle around foreground pixels and rotates the image upright.
// Any failure falls back to the input image with a warning; the
// pipeline never aborts on deskew.
func deskew(gray gocv.Mat) gocv.Mat {
	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(gray, &inverted)

	nonZero := gocv.NewMat()
	defer nonZero.Close()
	gocv.FindNonZero(inverted, &nonZero)
	if nonZero.Empty() {
		return gray
	}

	points := gocv.NewPointVectorFromMat(nonZero)
	defer points.Close()

	rect := gocv.MinAreaRect(points)
	angle := float64(rect.Angle)
	if angle < -45 {
		angle = -(90 + angle)
	} else {
		angle = -angle
	}

	if math.Abs(angle) < deskewMinAngle {
		return gray
	}

	h, w := gray.Rows(), gray.Cols()
	center := image.Pt(w/2, h/2)
	rotation := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer rotation.Close()

	rotated := gocv.NewMat()
	if err := gocv.WarpAffineWithParams(gray, &rotated, rotation, image.Pt(w, h),
		gocv.InterpolationCubic, gocv.BorderReplicate, defaultBorder()); err != nil {
		rotated.Close()
		slog.Warn("preprocess: deskew failed, keeping unrotated image", "error", err)
		return gray
	}

	slog.Debug("preprocess: deskew applied", "angle", angle)
	gray.Close()
	return rotated
}

func defaultBorder() color.RGBA {
	return color.RGBA{}
}

// derivedPath builds the output filename for a pipeline derivative.
func derivedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + suffix + ext
}
