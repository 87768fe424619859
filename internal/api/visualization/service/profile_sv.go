package visualizationService

import (
	"errors"
	"fmt"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"PaintVisualizer/pkg/redis"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const DetectionConfigKey = "paint:detection:config"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (s *visualizationService) DetectionConfig() entity.DetectionConfig {
	return s.config.Load().Clone()
}

// UpdateConfidenceProfile applies a partial update to a copy of the current
// snapshot and swaps it in. In-flight requests keep the snapshot they loaded.
func (s *visualizationService) UpdateConfidenceProfile(ctx context.Context, req visualization.UpdateProfileRequest) (entity.DetectionConfig, error) {
	requestID := contextPkg.GetRequestID(ctx)

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	next := s.config.Load().Clone()

	if req.OverlapThreshold != nil {
		if !unitInterval(*req.OverlapThreshold) {
			return entity.DetectionConfig{}, fmt.Errorf("%w: overlap threshold must be within [0,1]", visualization.ErrInvalidProfile)
		}
		next.Profile.OverlapThreshold = *req.OverlapThreshold
	}

	if req.MinAreaFraction != nil {
		if !unitInterval(*req.MinAreaFraction) {
			return entity.DetectionConfig{}, fmt.Errorf("%w: min area fraction must be within [0,1]", visualization.ErrInvalidProfile)
		}
		next.Profile.MinAreaFraction = *req.MinAreaFraction
	}

	for _, update := range req.Models {
		idx := modelIndex(next.Models, update.ID)
		if idx < 0 {
			return entity.DetectionConfig{}, fmt.Errorf("%w: %s", visualization.ErrUnknownDetectionModel, update.ID)
		}

		if update.Enabled != nil {
			next.Models[idx].Enabled = *update.Enabled
		}

		threshold := next.ThresholdFor(update.ID)
		if update.PrimaryThreshold != nil {
			threshold.Primary = *update.PrimaryThreshold
		}
		if update.FallbackThreshold != nil {
			threshold.Fallback = *update.FallbackThreshold
		}
		if err := validateThreshold(threshold); err != nil {
			return entity.DetectionConfig{}, fmt.Errorf("%w: model %s: %v", visualization.ErrInvalidProfile, update.ID, err)
		}
		next.Profile.Thresholds[update.ID] = threshold
	}

	s.config.Store(&next)

	s.log.WithFields(logrus.Fields{
		"request_id":        requestID,
		"models":            len(req.Models),
		"overlap_threshold": next.Profile.OverlapThreshold,
		"min_area_fraction": next.Profile.MinAreaFraction,
	}).Info("Confidence profile updated")

	s.persistConfig(ctx, next)

	return next.Clone(), nil
}

// LoadConfidenceProfile overlays the snapshot persisted by an earlier update.
// Models that are no longer configured are ignored.
func (s *visualizationService) LoadConfidenceProfile(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	raw, err := s.redis.Get(ctx, DetectionConfigKey)
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("load detection config: %w", err)
	}

	var stored storedConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("decode detection config: %w", err)
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	next := s.config.Load().Clone()

	for _, m := range stored.Models {
		if idx := modelIndex(next.Models, m.ID); idx >= 0 && m.Enabled != nil {
			next.Models[idx].Enabled = *m.Enabled
		}
	}
	for id, t := range stored.Profile.Thresholds {
		if modelIndex(next.Models, id) >= 0 && validateThreshold(t) == nil {
			next.Profile.Thresholds[id] = t
		}
	}
	if v := stored.Profile.OverlapThreshold; v != nil && unitInterval(*v) {
		next.Profile.OverlapThreshold = *v
	}
	if v := stored.Profile.MinAreaFraction; v != nil && unitInterval(*v) {
		next.Profile.MinAreaFraction = *v
	}

	s.config.Store(&next)
	return nil
}

func (s *visualizationService) persistConfig(ctx context.Context, cfg entity.DetectionConfig) {
	if s.redis == nil {
		return
	}

	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"key":        DetectionConfigKey,
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		fields["error"] = err.Error()
		s.log.WithFields(fields).Warn("Failed to encode detection config")
		return
	}

	if err := s.redis.Set(ctx, DetectionConfigKey, string(payload), 0); err != nil {
		fields["error"] = err.Error()
		s.log.WithFields(fields).Warn("Failed to persist detection config")
	}
}

func modelIndex(models []entity.DetectionModel, id string) int {
	for i, m := range models {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func validateThreshold(t entity.ModelThreshold) error {
	if !unitInterval(t.Primary) || !unitInterval(t.Fallback) {
		return errors.New("thresholds must be within [0,1]")
	}
	if t.Fallback > t.Primary {
		return errors.New("fallback threshold must not exceed primary threshold")
	}
	return nil
}

func unitInterval(v float64) bool {
	return v >= 0 && v <= 1
}

// storedConfig is the persisted snapshot with optional scalars. Keys absent
// from the stored JSON leave the current values in place.
type storedConfig struct {
	Models []struct {
		ID      string `json:"id"`
		Enabled *bool  `json:"enabled"`
	} `json:"models"`
	Profile struct {
		Thresholds       map[string]entity.ModelThreshold `json:"thresholds"`
		OverlapThreshold *float64                         `json:"overlap_threshold"`
		MinAreaFraction  *float64                         `json:"min_area_fraction"`
	} `json:"profile"`
}
