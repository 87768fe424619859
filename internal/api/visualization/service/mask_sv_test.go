package visualizationService

import (
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"testing"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeMatchesRequestedDimensions(t *testing.T) {
	detections := map[string]*entity.DetectionResult{
		"nil":          nil,
		"boxes":        boxes(wallRegion(10, 10, 30, 30, 0.9)),
		"empty boxes":  boxes(),
		"segmentation": {Shape: entity.ShapeSegmentation, Segmentation: &entity.SegmentationResult{ClassMap: map[string]int{"wall": 1}}},
		"unknown":      {Shape: "polygons"},
	}

	for name, det := range detections {
		t.Run(name, func(t *testing.T) {
			mask := Synthesize(det, 137, 91)
			assert.Equal(t, 137, mask.Width())
			assert.Equal(t, 91, mask.Height())
		})
	}
}

func TestSynthesizeBoxesUnion(t *testing.T) {
	det := boxes(
		wallRegion(25, 25, 20, 20, 0.9),
		wallRegion(75, 75, 20, 20, 0.9),
		entity.Region{Label: "sofa", CenterX: 50, CenterY: 50, Width: 20, Height: 20},
	)

	mask := Synthesize(det, 100, 100)

	assert.Equal(t, 800, mask.PaintedPixels())
	assert.True(t, mask.IsPaint(15, 15))
	assert.True(t, mask.IsPaint(84, 84))
	assert.False(t, mask.IsPaint(50, 50), "non-surface labels are not painted")
	assert.False(t, mask.IsPaint(35, 35))
}

func TestSynthesizeBoxesClampToImage(t *testing.T) {
	mask := Synthesize(boxes(wallRegion(0, 0, 40, 40, 0.9)), 100, 100)

	assert.Equal(t, 400, mask.PaintedPixels())
	assert.True(t, mask.IsPaint(0, 0))
	assert.False(t, mask.IsPaint(20, 20))
}

func TestSynthesizeWithoutWallUsesDefault(t *testing.T) {
	det := boxes(entity.Region{Label: "window", CenterX: 50, CenterY: 50, Width: 20, Height: 20})

	assert.Equal(t, DefaultMask(100, 100).Pix, Synthesize(det, 100, 100).Pix)
	assert.Equal(t, DefaultMask(100, 100).Pix, Synthesize(nil, 100, 100).Pix)
}

func TestDefaultMaskRectangle(t *testing.T) {
	mask := DefaultMask(100, 100)

	assert.Equal(t, 60*50, mask.PaintedPixels())
	assert.True(t, mask.IsPaint(20, 20))
	assert.True(t, mask.IsPaint(79, 69))
	assert.False(t, mask.IsPaint(80, 69))
	assert.False(t, mask.IsPaint(79, 70))
	assert.False(t, mask.IsPaint(19, 20))
}

func TestSynthesizeSegmentationBitmap(t *testing.T) {
	classes := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 5; x++ {
			classes.SetGray(x, y, color.Gray{Y: 1})
		}
	}

	det := &entity.DetectionResult{
		Shape: entity.ShapeSegmentation,
		Segmentation: &entity.SegmentationResult{
			ClassMap: map[string]int{"background": 0, "wall": 1},
			Mask:     base64.StdEncoding.EncodeToString(encodePNG(t, classes)),
		},
	}

	mask := Synthesize(det, 20, 20)

	assert.Equal(t, 200, mask.PaintedPixels())
	assert.True(t, mask.IsPaint(9, 19))
	assert.False(t, mask.IsPaint(10, 0))
}

func TestSynthesizeSegmentationZonesWithoutBitmap(t *testing.T) {
	det := &entity.DetectionResult{
		Shape:        entity.ShapeSegmentation,
		Segmentation: &entity.SegmentationResult{ClassMap: map[string]int{"wall": 3}},
	}

	mask := Synthesize(det, 100, 100)

	assert.True(t, mask.IsPaint(30, 50), "left zone")
	assert.True(t, mask.IsPaint(70, 50), "right zone")
	assert.False(t, mask.IsPaint(55, 50), "gap between zones")
	assert.False(t, mask.IsPaint(5, 5))
}

func TestSynthesizeSegmentationWithoutWallClass(t *testing.T) {
	det := &entity.DetectionResult{
		Shape:        entity.ShapeSegmentation,
		Segmentation: &entity.SegmentationResult{ClassMap: map[string]int{"floor": 0, "ceiling": 1}},
	}

	assert.Equal(t, DefaultMask(64, 48).Pix, Synthesize(det, 64, 48).Pix)
}

func halfWhiteMask(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if x < 5 {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 0})
			}
		}
	}
	return encodePNG(t, img)
}

func TestSynthesizeFromUserMaskScalesAndBinarizes(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(halfWhiteMask(t))

	mask, err := SynthesizeFromUserMask(encoded, 100, 60)
	require.NoError(t, err)

	assert.Equal(t, 100, mask.Width())
	assert.Equal(t, 60, mask.Height())
	assert.Equal(t, 50*60, mask.PaintedPixels())
	assert.True(t, mask.IsPaint(0, 0))
	assert.False(t, mask.IsPaint(99, 59), "transparent pixels preserve")
}

func TestSynthesizeFromUserMaskAcceptsDataURI(t *testing.T) {
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(halfWhiteMask(t))

	mask, err := SynthesizeFromUserMask(encoded, 20, 20)
	require.NoError(t, err)
	assert.Equal(t, 200, mask.PaintedPixels())
}

func TestSynthesizeFromUserMaskRejectsGarbage(t *testing.T) {
	for name, encoded := range map[string]string{
		"not base64": "%%%not-base64%%%",
		"not image":  base64.StdEncoding.EncodeToString([]byte("hello")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := SynthesizeFromUserMask(encoded, 20, 20)
			assert.True(t, errors.Is(err, visualization.ErrInvalidManualMask))
		})
	}
}

func TestResizeMaskStaysBinary(t *testing.T) {
	mask := DefaultMask(100, 100)

	resized := resizeMask(mask, 48, 32)

	require.Equal(t, 48, resized.Width())
	require.Equal(t, 32, resized.Height())
	for _, v := range resized.Pix {
		assert.Contains(t, []uint8{entity.MaskPaint, entity.MaskPreserve}, v)
	}
	assert.Same(t, mask, resizeMask(mask, 100, 100))
}
