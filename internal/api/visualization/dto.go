package visualization

import "PaintVisualizer/internal/entity"

type VisualizeRequest struct {
	ColorID       string `form:"color_id" json:"color_id"`
	ColorHex      string `form:"color_hex" json:"color_hex" validate:"omitempty,hexcolor"`
	ColorName     string `form:"color_name" json:"color_name" validate:"max=100"`
	Pattern       string `form:"pattern" json:"pattern"`
	MaskingMethod string `form:"masking_method" json:"masking_method" validate:"omitempty,oneof=ai manual"`
	ManualMask    string `form:"manual_mask" json:"manual_mask"`
	ImageBase64   string `form:"image_base64" json:"image_base64"`
}

// VisualizeInput is the pipeline entry contract once the calling layer has
// loaded the image and resolved the color.
type VisualizeInput struct {
	Image         []byte
	Color         entity.ColorSpec
	Pattern       entity.PatternType
	MaskingMethod entity.MaskingMethod
	ManualMask    string
}

type VisualizeResponse struct {
	Data  entity.VisualizationResult `json:"data"`
	Error string                     `json:"error,omitempty"`
}

type RecommendationRequest struct {
	Color string `query:"color" validate:"required,hexcolor"`
}

type RecommendationResponse struct {
	Base            string             `json:"base"`
	Recommendations []entity.ColorSpec `json:"recommendations"`
}

type ColorFilter struct {
	Brand    string `query:"brand" validate:"max=100"`
	Category string `query:"category" validate:"max=100"`
}

// ModelUpdate changes a single detection model; nil fields are left as they are.
type ModelUpdate struct {
	ID                string   `json:"id" validate:"required"`
	Enabled           *bool    `json:"enabled,omitempty"`
	PrimaryThreshold  *float64 `json:"primary_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	FallbackThreshold *float64 `json:"fallback_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type UpdateProfileRequest struct {
	Models           []ModelUpdate `json:"models" validate:"dive"`
	OverlapThreshold *float64      `json:"overlap_threshold,omitempty" validate:"omitempty,gte=0,lte=1"`
	MinAreaFraction  *float64      `json:"min_area_fraction,omitempty" validate:"omitempty,gte=0,lte=1"`
}

type PatternListResponse struct {
	Data []entity.PatternSpec `json:"data"`
}

type ColorListResponse struct {
	Data []entity.ColorSpec `json:"data"`
}

type DetectionProfileResponse struct {
	Data entity.DetectionConfig `json:"data"`
}
