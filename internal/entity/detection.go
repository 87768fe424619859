package entity

import "strings"

type CapabilityKind string

const (
	CapabilityBoxDetection CapabilityKind = "box-detection"
	CapabilitySegmentation CapabilityKind = "segmentation"
)

type DetectorProvider string

const (
	ProviderRoboflow  DetectorProvider = "roboflow"
	ProviderWebsocket DetectorProvider = "websocket"
	ProviderGemini    DetectorProvider = "gemini"
)

type DetectionModel struct {
	ID       string           `json:"id"`
	Endpoint string           `json:"endpoint"`
	Kind     CapabilityKind   `json:"kind"`
	Provider DetectorProvider `json:"provider"`
	Enabled  bool             `json:"enabled"`
}

type DetectionShape string

const (
	ShapeBoxes        DetectionShape = "boxes"
	ShapeSegmentation DetectionShape = "segmentation"
)

// Region is a detector box in working-image pixels, addressed by its center.
type Region struct {
	Label      string  `json:"label"`
	CenterX    float64 `json:"center_x"`
	CenterY    float64 `json:"center_y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

func (r Region) Area() float64 {
	return r.Width * r.Height
}

func (r Region) IsPaintable() bool {
	return IsPaintableLabel(r.Label)
}

type SegmentationResult struct {
	ClassMap map[string]int `json:"class_map"`
	// Mask is a base64 PNG whose pixel values are class ids.
	Mask string `json:"mask,omitempty"`
}

// PaintableClassID returns the lowest class id whose label is a wall.
func (s *SegmentationResult) PaintableClassID() (int, bool) {
	if s == nil {
		return 0, false
	}
	found := false
	lowest := 0
	for label, id := range s.ClassMap {
		if IsPaintableLabel(label) && (!found || id < lowest) {
			lowest = id
			found = true
		}
	}
	return lowest, found
}

type DetectionResult struct {
	Shape        DetectionShape      `json:"shape"`
	Regions      []Region            `json:"regions,omitempty"`
	Segmentation *SegmentationResult `json:"segmentation,omitempty"`
	Fallback     bool                `json:"fallback"`
	ModelID      string              `json:"model_id"`
	Confidence   float64             `json:"confidence"`
}

func (d *DetectionResult) PaintableRegions() []Region {
	if d == nil {
		return nil
	}
	var out []Region
	for _, r := range d.Regions {
		if r.IsPaintable() {
			out = append(out, r)
		}
	}
	return out
}

func IsPaintableLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "wall")
}
