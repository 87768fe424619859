package entity

import "image"

type RawImage struct {
	Data     []byte `json:"-"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Format   string `json:"format"`
}

type NormalizedImage struct {
	Image  image.Image
	Data   []byte
	Base64 string
	Width  int
	Height int
}

// PaintMask marks pixels the synthesizer may alter with MaskPaint and all
// others with MaskPreserve.
type PaintMask struct {
	*image.Gray
}

const (
	MaskPaint    uint8 = 255
	MaskPreserve uint8 = 0
)

func NewPaintMask(width, height int) *PaintMask {
	return &PaintMask{Gray: image.NewGray(image.Rect(0, 0, width, height))}
}

func (m *PaintMask) Width() int {
	return m.Bounds().Dx()
}

func (m *PaintMask) Height() int {
	return m.Bounds().Dy()
}

func (m *PaintMask) FillRect(r image.Rectangle) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[m.PixOffset(x, y)] = MaskPaint
		}
	}
}

func (m *PaintMask) IsPaint(x, y int) bool {
	return m.GrayAt(x, y).Y == MaskPaint
}

func (m *PaintMask) PaintedPixels() int {
	count := 0
	for _, v := range m.Pix {
		if v == MaskPaint {
			count++
		}
	}
	return count
}
