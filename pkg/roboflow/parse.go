package roboflow

import (
	"errors"
	"fmt"
	"strconv"

	"PaintVisualizer/internal/entity"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrUnrecognizedPayload = errors.New("unrecognized detection payload")

type wirePrediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

type wireResponse struct {
	Predictions      *[]wirePrediction `json:"predictions"`
	SegmentationMask string            `json:"segmentation_mask"`
	ClassMap         map[string]string `json:"class_map"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
}

// ParseDetection decodes a detector payload in either the box-list shape
// ({"predictions": [...]}) or the semantic segmentation shape
// ({"segmentation_mask": "...", "class_map": {"1": "wall"}}).
func ParseDetection(body []byte) (*entity.DetectionResult, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode detection payload: %w", err)
	}

	if wire.Error != "" {
		return nil, fmt.Errorf("detector error: %s", wire.Error)
	}

	if wire.ClassMap != nil {
		classMap := make(map[string]int, len(wire.ClassMap))
		for rawID, label := range wire.ClassMap {
			id, err := strconv.Atoi(rawID)
			if err != nil {
				return nil, fmt.Errorf("decode class id %q: %w", rawID, err)
			}
			classMap[label] = id
		}
		return &entity.DetectionResult{
			Shape: entity.ShapeSegmentation,
			Segmentation: &entity.SegmentationResult{
				ClassMap: classMap,
				Mask:     wire.SegmentationMask,
			},
		}, nil
	}

	if wire.Predictions != nil {
		regions := make([]entity.Region, 0, len(*wire.Predictions))
		for _, p := range *wire.Predictions {
			regions = append(regions, entity.Region{
				Label:      p.Class,
				CenterX:    p.X,
				CenterY:    p.Y,
				Width:      p.Width,
				Height:     p.Height,
				Confidence: p.Confidence,
			})
		}
		return &entity.DetectionResult{
			Shape:   entity.ShapeBoxes,
			Regions: regions,
		}, nil
	}

	if wire.Message != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedPayload, wire.Message)
	}
	return nil, ErrUnrecognizedPayload
}
