// Package preview renders quality-control images of an imported label
// volume: 2D slices along each anatomical axis with every structure drawn
// in its assigned display color.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"segrunner/internal/models"
)

// ColorFunc returns the display color for a label value.
type ColorFunc func(label int32) models.Color

// Renderer renders colored slices of a label volume.
type Renderer struct {
	labels   *models.LabelVolume
	colorFor ColorFunc
}

// NewRenderer creates a renderer over the given label volume. colorFor maps
// each label value to its display color; label 0 is always background black.
func NewRenderer(labels *models.LabelVolume, colorFor ColorFunc) *Renderer {
	return &Renderer{labels: labels, colorFor: colorFor}
}

// ExtractSlice renders a 2D slice along the specified axis.
func (r *Renderer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	lv := r.labels
	var img *image.RGBA

	switch axis {
	case "x", "X":
		// Slice along the YZ plane
		if position >= lv.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, lv.Width)
		}
		img = image.NewRGBA(image.Rect(0, 0, lv.Depth, lv.Height))
		for y := 0; y < lv.Height; y++ {
			for z := 0; z < lv.Depth; z++ {
				idx := z*lv.Width*lv.Height + y*lv.Width + position
				img.Set(z, y, r.voxelColor(idx))
			}
		}

	case "y", "Y":
		// Slice along the XZ plane
		if position >= lv.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, lv.Height)
		}
		img = image.NewRGBA(image.Rect(0, 0, lv.Width, lv.Depth))
		for z := 0; z < lv.Depth; z++ {
			for x := 0; x < lv.Width; x++ {
				idx := z*lv.Width*lv.Height + position*lv.Width + x
				img.Set(x, z, r.voxelColor(idx))
			}
		}

	case "z", "Z":
		// Slice along the XY plane
		if position >= lv.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, lv.Depth)
		}
		img = image.NewRGBA(image.Rect(0, 0, lv.Width, lv.Height))
		for y := 0; y < lv.Height; y++ {
			for x := 0; x < lv.Width; x++ {
				idx := position*lv.Width*lv.Height + y*lv.Width + x
				img.Set(x, y, r.voxelColor(idx))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

func (r *Renderer) voxelColor(idx int) color.RGBA {
	if idx >= len(r.labels.Labels) {
		return color.RGBA{A: 255}
	}
	label := r.labels.Labels[idx]
	if label == 0 {
		return color.RGBA{A: 255}
	}
	c := r.colorFor(label)
	return color.RGBA{
		R: uint8(clamp01(c[0]) * 255),
		G: uint8(clamp01(c[1]) * 255),
		B: uint8(clamp01(c[2]) * 255),
		A: 255,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SaveSlice saves a rendered slice as a JPEG image.
func (r *Renderer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence renders and saves every slice along the specified axis.
func (r *Renderer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = r.labels.Width
	case "y", "Y":
		maxPos = r.labels.Height
	case "z", "Z":
		maxPos = r.labels.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := r.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := r.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
