package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	visualizationService "PaintVisualizer/internal/api/visualization/service"
	"PaintVisualizer/internal/entity"
	jsoniter "github.com/json-iterator/go"
)

// detectionModelEntry is one element of DETECTION_MODELS. Thresholds are
// optional and seed the initial confidence profile.
type detectionModelEntry struct {
	entity.DetectionModel
	PrimaryThreshold  *float64 `json:"primary_threshold,omitempty"`
	FallbackThreshold *float64 `json:"fallback_threshold,omitempty"`
}

var defaultDetectionModels = []entity.DetectionModel{
	{
		ID:       "wall-detection",
		Endpoint: "https://detect.roboflow.com/wall-detection-xi9ox/2",
		Kind:     entity.CapabilityBoxDetection,
		Provider: entity.ProviderRoboflow,
		Enabled:  true,
	},
	{
		ID:       "wall-segmentation",
		Endpoint: "https://outline.roboflow.com/wall-segmentation-ahfsp/1",
		Kind:     entity.CapabilitySegmentation,
		Provider: entity.ProviderRoboflow,
		Enabled:  true,
	},
}

// LoadDetectionConfig builds the initial snapshot from DETECTION_MODELS, or
// from the built-in model list when the variable is unset.
func LoadDetectionConfig() (entity.DetectionConfig, error) {
	cfg := entity.DetectionConfig{
		Profile: entity.ConfidenceProfile{
			Thresholds:       map[string]entity.ModelThreshold{},
			OverlapThreshold: envFloat("DETECTION_OVERLAP_THRESHOLD", entity.DefaultOverlapThreshold),
			MinAreaFraction:  envFloat("DETECTION_MIN_AREA_FRACTION", entity.DefaultMinAreaFraction),
		},
	}

	raw := os.Getenv("DETECTION_MODELS")
	if raw == "" {
		cfg.Models = append([]entity.DetectionModel(nil), defaultDetectionModels...)
		return cfg, nil
	}

	var entries []detectionModelEntry
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal([]byte(raw), &entries); err != nil {
		return entity.DetectionConfig{}, fmt.Errorf("parse DETECTION_MODELS: %w", err)
	}

	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Endpoint == "" {
			return entity.DetectionConfig{}, fmt.Errorf("parse DETECTION_MODELS: model id and endpoint are required")
		}
		if seen[e.ID] {
			return entity.DetectionConfig{}, fmt.Errorf("parse DETECTION_MODELS: duplicate model %q", e.ID)
		}
		seen[e.ID] = true

		model := e.DetectionModel
		if model.Provider == "" {
			model.Provider = entity.ProviderRoboflow
		}
		if model.Kind == "" {
			model.Kind = entity.CapabilityBoxDetection
		}
		cfg.Models = append(cfg.Models, model)

		if e.PrimaryThreshold != nil || e.FallbackThreshold != nil {
			t := cfg.ThresholdFor(e.ID)
			if e.PrimaryThreshold != nil {
				t.Primary = *e.PrimaryThreshold
			}
			if e.FallbackThreshold != nil {
				t.Fallback = *e.FallbackThreshold
			}
			if t.Fallback > t.Primary || t.Primary > 1 || t.Fallback < 0 {
				return entity.DetectionConfig{}, fmt.Errorf("parse DETECTION_MODELS: invalid thresholds for %q", e.ID)
			}
			cfg.Profile.Thresholds[e.ID] = t
		}
	}

	return cfg, nil
}

func LoadServiceOptions() visualizationService.Options {
	return visualizationService.Options{
		DetectTimeout:    envSeconds("DETECTION_TIMEOUT_SECONDS"),
		SynthesisTimeout: envSeconds("SYNTHESIS_TIMEOUT_SECONDS"),
		Seed:             envInt64("SYNTHESIS_SEED"),
	}
}

// Unset or invalid values are left at zero so the service applies its defaults.
func envSeconds(key string) time.Duration {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func envInt64(key string) int64 {
	n, _ := strconv.ParseInt(os.Getenv(key), 10, 64)
	return n
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 || v > 1 {
		return fallback
	}
	return v
}
