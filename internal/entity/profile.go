package entity

type ModelThreshold struct {
	Primary  float64 `json:"primary"`
	Fallback float64 `json:"fallback"`
}

type ConfidenceProfile struct {
	Thresholds       map[string]ModelThreshold `json:"thresholds"`
	OverlapThreshold float64                   `json:"overlap_threshold"`
	MinAreaFraction  float64                   `json:"min_area_fraction"`
}

// DetectionConfig is the read-only snapshot the detector orchestrator consumes.
// A new value is built on every update; existing values are never mutated.
type DetectionConfig struct {
	Models  []DetectionModel  `json:"models"`
	Profile ConfidenceProfile `json:"profile"`
}

const (
	DefaultPrimaryThreshold  = 0.40
	DefaultFallbackThreshold = 0.25
	DefaultOverlapThreshold  = 0.30
	DefaultMinAreaFraction   = 0.02
)

func (c DetectionConfig) ThresholdFor(modelID string) ModelThreshold {
	if t, ok := c.Profile.Thresholds[modelID]; ok {
		return t
	}
	return ModelThreshold{Primary: DefaultPrimaryThreshold, Fallback: DefaultFallbackThreshold}
}

func (c DetectionConfig) Clone() DetectionConfig {
	models := make([]DetectionModel, len(c.Models))
	copy(models, c.Models)

	thresholds := make(map[string]ModelThreshold, len(c.Profile.Thresholds))
	for k, v := range c.Profile.Thresholds {
		thresholds[k] = v
	}

	return DetectionConfig{
		Models: models,
		Profile: ConfidenceProfile{
			Thresholds:       thresholds,
			OverlapThreshold: c.Profile.OverlapThreshold,
			MinAreaFraction:  c.Profile.MinAreaFraction,
		},
	}
}
