package visualizationService

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	minSourceSide = 320
	maxSourceSide = 1536
	workingBox    = 1024
	jpegQuality   = 95
)

func (s *visualizationService) Prepare(raw []byte) (*entity.NormalizedImage, error) {
	return Prepare(raw)
}

// Prepare decodes an upload into the working image every later stage uses.
// Any decode failure is fatal to the request.
func Prepare(raw []byte) (*entity.NormalizedImage, error) {
	if len(raw) == 0 {
		return nil, visualization.ErrImageRequired
	}

	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", visualization.ErrImageDecode, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", visualization.ErrImageDecode)
	}

	working := flatten(src)
	if outOfBounds(working.Bounds().Dx(), working.Bounds().Dy()) {
		working = imaging.Fit(working, workingBox, workingBox, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, working, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("%w: %v", visualization.ErrImageDecode, err)
	}

	return &entity.NormalizedImage{
		Image:  working,
		Data:   buf.Bytes(),
		Base64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:  working.Bounds().Dx(),
		Height: working.Bounds().Dy(),
	}, nil
}

// flatten composites the image onto opaque white so only three channels
// carry information.
func flatten(src image.Image) *image.NRGBA {
	bounds := src.Bounds()
	bg := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
	return imaging.Overlay(bg, src, image.Pt(0, 0), 1.0)
}

func outOfBounds(width, height int) bool {
	return width < minSourceSide || height < minSourceSide ||
		width > maxSourceSide || height > maxSourceSide
}
