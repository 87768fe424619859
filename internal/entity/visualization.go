package entity

type MaskingMethod string

const (
	MaskingAI     MaskingMethod = "ai"
	MaskingManual MaskingMethod = "manual"
)

type SynthesisRequest struct {
	ImagePath string
	MaskPath  string
	Profile   GenerationProfile
	Width     int
	Height    int
	Seed      int64
}

// SynthesisResult carries either a hosted URL or the encoded image itself.
type SynthesisResult struct {
	URL         string
	Data        []byte
	ContentType string
}

type VisualizationResult struct {
	PlainURL          string        `json:"plain_url"`
	PatternURL        string        `json:"pattern_url,omitempty"`
	Message           string        `json:"message"`
	Recommendations   []ColorSpec   `json:"recommendations"`
	Pattern           PatternType   `json:"pattern"`
	MaskingMethod     MaskingMethod `json:"masking_method"`
	DetectionModel    string        `json:"detection_model,omitempty"`
	DetectionFallback bool          `json:"detection_fallback"`
	Degraded          bool          `json:"degraded"`
}
