package visualizationService

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"math"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	"PaintVisualizer/pkg/utils"
	"github.com/disintegration/imaging"
)

// Default paint rectangle, as fractions of the image.
const (
	defaultMaskX = 0.20
	defaultMaskY = 0.20
	defaultMaskW = 0.60
	defaultMaskH = 0.50
)

type zone struct {
	x, y, w, h float64
}

// segmentationZones stand in for the wall when the class bitmap is unusable:
// one zone over the left third, one over the right third.
var segmentationZones = []zone{
	{x: 0.10, y: 0.15, w: 0.40, h: 0.70},
	{x: 0.60, y: 0.20, w: 0.30, h: 0.60},
}

func (s *visualizationService) Synthesize(det *entity.DetectionResult, width, height int) *entity.PaintMask {
	return Synthesize(det, width, height)
}

// Synthesize converts a detection into a paint mask of exactly width x height.
func Synthesize(det *entity.DetectionResult, width, height int) *entity.PaintMask {
	if det == nil {
		return DefaultMask(width, height)
	}

	switch det.Shape {
	case entity.ShapeBoxes:
		mask := entity.NewPaintMask(width, height)
		for _, r := range det.PaintableRegions() {
			mask.FillRect(regionRect(r))
		}
		if mask.PaintedPixels() == 0 {
			return DefaultMask(width, height)
		}
		return mask

	case entity.ShapeSegmentation:
		classID, ok := det.Segmentation.PaintableClassID()
		if !ok {
			return DefaultMask(width, height)
		}
		if mask, err := decodeClassMask(det.Segmentation.Mask, classID, width, height); err == nil && mask.PaintedPixels() > 0 {
			return mask
		}
		mask := entity.NewPaintMask(width, height)
		for _, z := range segmentationZones {
			mask.FillRect(proportionalRect(width, height, z))
		}
		return mask

	default:
		return DefaultMask(width, height)
	}
}

func DefaultMask(width, height int) *entity.PaintMask {
	mask := entity.NewPaintMask(width, height)
	mask.FillRect(proportionalRect(width, height, zone{x: defaultMaskX, y: defaultMaskY, w: defaultMaskW, h: defaultMaskH}))
	return mask
}

// regionRect converts a center-addressed region to pixel bounds. Clamping to
// the image happens in FillRect.
func regionRect(r entity.Region) image.Rectangle {
	return spanRect(r.CenterX-r.Width/2, r.CenterY-r.Height/2, r.CenterX+r.Width/2, r.CenterY+r.Height/2)
}

func proportionalRect(width, height int, z zone) image.Rectangle {
	w, h := float64(width), float64(height)
	return spanRect(z.x*w, z.y*h, (z.x+z.w)*w, (z.y+z.h)*h)
}

// spanRect rounds float bounds and keeps at least one pixel on each axis.
func spanRect(x0, y0, x1, y1 float64) image.Rectangle {
	minX, minY := int(math.Round(x0)), int(math.Round(y0))
	maxX, maxY := int(math.Round(x1)), int(math.Round(y1))
	if maxX <= minX {
		maxX = minX + 1
	}
	if maxY <= minY {
		maxY = minY + 1
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// decodeClassMask reads a per-pixel class bitmap and marks every pixel equal
// to classID, scaled nearest-neighbour to width x height.
func decodeClassMask(encoded string, classID, width, height int) (*entity.PaintMask, error) {
	if encoded == "" {
		return nil, fmt.Errorf("no class bitmap")
	}

	raw, err := utils.DecodeBase64Payload(encoded)
	if err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode class bitmap: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("empty class bitmap")
	}

	mask := entity.NewPaintMask(width, height)
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/width
			if classAt(src, sx, sy) == classID {
				mask.SetGray(x, y, color.Gray{Y: entity.MaskPaint})
			}
		}
	}
	return mask, nil
}

func classAt(img image.Image, x, y int) int {
	switch m := img.(type) {
	case *image.Paletted:
		return int(m.ColorIndexAt(x, y))
	case *image.Gray:
		return int(m.GrayAt(x, y).Y)
	case *image.Gray16:
		return int(m.Gray16At(x, y).Y)
	default:
		r, _, _, _ := img.At(x, y).RGBA()
		return int(r >> 8)
	}
}

func (s *visualizationService) SynthesizeFromUserMask(encoded string, width, height int) (*entity.PaintMask, error) {
	return SynthesizeFromUserMask(encoded, width, height)
}

// SynthesizeFromUserMask scales a caller-drawn bitmap to the working image.
// Pixels at or above half luminance paint; transparent pixels preserve.
func SynthesizeFromUserMask(encoded string, width, height int) (*entity.PaintMask, error) {
	if width <= 0 || height <= 0 {
		return nil, visualization.ErrMaskDimensionMismatch
	}

	raw, err := utils.DecodeBase64Payload(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", visualization.ErrInvalidManualMask, err)
	}

	src, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", visualization.ErrInvalidManualMask, err)
	}

	return binarize(imaging.Resize(src, width, height, imaging.NearestNeighbor)), nil
}

func binarize(img *image.NRGBA) *entity.PaintMask {
	bounds := img.Bounds()
	mask := entity.NewPaintMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			if gray.Y >= 128 {
				mask.SetGray(x, y, color.Gray{Y: entity.MaskPaint})
			}
		}
	}
	return mask
}

// resizeMask scales a mask with nearest-neighbour sampling so it stays binary.
func resizeMask(mask *entity.PaintMask, width, height int) *entity.PaintMask {
	if mask.Width() == width && mask.Height() == height {
		return mask
	}
	return binarize(imaging.Resize(mask.Gray, width, height, imaging.NearestNeighbor))
}
