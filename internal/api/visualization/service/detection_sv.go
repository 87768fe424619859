package visualizationService

import (
	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const fallbackModelID = "default"

type attemptStage string

const (
	stagePrimary  attemptStage = "primary"
	stageFallback attemptStage = "fallback"
)

type attempt struct {
	model      entity.DetectionModel
	confidence float64
	stage      attemptStage
}

// buildAttempts expands the snapshot into the ordered attempt chain: every
// enabled model in configured order, primary threshold before fallback.
func buildAttempts(cfg *entity.DetectionConfig) []attempt {
	attempts := make([]attempt, 0, 2*len(cfg.Models))
	for _, model := range cfg.Models {
		if !model.Enabled {
			continue
		}
		t := cfg.ThresholdFor(model.ID)
		attempts = append(attempts, attempt{model: model, confidence: t.Primary, stage: stagePrimary})
		if t.Fallback != t.Primary {
			attempts = append(attempts, attempt{model: model, confidence: t.Fallback, stage: stageFallback})
		}
	}
	return attempts
}

// Detect walks the attempt chain sequentially and returns the first accepted
// result. It never fails: exhaustion yields the synthetic default region.
func (s *visualizationService) Detect(ctx context.Context, img *entity.NormalizedImage) *entity.DetectionResult {
	requestID := contextPkg.GetRequestID(ctx)
	cfg := s.config.Load()

	imageArea := float64(img.Width * img.Height)
	minArea := cfg.Profile.MinAreaFraction * imageArea

	for _, a := range buildAttempts(cfg) {
		if ctx.Err() != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      ctx.Err().Error(),
			}).Warn("Detection cancelled, using default region")
			break
		}

		fields := logrus.Fields{
			"request_id": requestID,
			"model_id":   a.model.ID,
			"stage":      a.stage,
			"confidence": a.confidence,
		}

		detector, ok := s.detectorFor(a.model)
		if !ok {
			fields["provider"] = a.model.Provider
			s.log.WithFields(fields).Warn("No detector transport for provider, skipping model")
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.DetectTimeout)
		raw, err := detector.Detect(attemptCtx, a.model, img, a.confidence, cfg.Profile.OverlapThreshold)
		cancel()
		if err != nil {
			fields["error"] = err.Error()
			s.log.WithFields(fields).Warn("Detector attempt failed")
			continue
		}

		result := filterRegions(raw, minArea)
		if !accepted(result) {
			s.log.WithFields(fields).Debug("Detector attempt found no paintable surface")
			continue
		}

		result.ModelID = a.model.ID
		result.Confidence = a.confidence
		result.Fallback = false

		s.log.WithFields(fields).Info("Detector attempt accepted")
		return result
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
	}).Info("No detector produced a paintable surface, using default region")

	return FallbackDetection(img.Width, img.Height)
}

func (s *visualizationService) detectorFor(model entity.DetectionModel) (Detector, bool) {
	provider := model.Provider
	if provider == "" {
		provider = entity.ProviderRoboflow
	}
	d, ok := s.detectors[provider]
	return d, ok && d != nil
}

// filterRegions drops paintable regions smaller than minArea. Other labels
// pass through untouched. The input is never modified.
func filterRegions(raw *entity.DetectionResult, minArea float64) *entity.DetectionResult {
	if raw == nil {
		return nil
	}

	out := *raw
	if raw.Shape != entity.ShapeBoxes {
		return &out
	}

	out.Regions = make([]entity.Region, 0, len(raw.Regions))
	for _, r := range raw.Regions {
		if r.IsPaintable() && r.Area() < minArea {
			continue
		}
		out.Regions = append(out.Regions, r)
	}
	return &out
}

func accepted(result *entity.DetectionResult) bool {
	if result == nil {
		return false
	}
	switch result.Shape {
	case entity.ShapeBoxes:
		return len(result.PaintableRegions()) > 0
	case entity.ShapeSegmentation:
		_, ok := result.Segmentation.PaintableClassID()
		return ok
	default:
		return false
	}
}

// FallbackDetection is the synthetic result used when no detector succeeds.
// Its single region covers the default paint rectangle.
func FallbackDetection(width, height int) *entity.DetectionResult {
	w, h := float64(width), float64(height)
	return &entity.DetectionResult{
		Shape: entity.ShapeBoxes,
		Regions: []entity.Region{{
			Label:   "wall",
			CenterX: w * (defaultMaskX + defaultMaskW/2),
			CenterY: h * (defaultMaskY + defaultMaskH/2),
			Width:   w * defaultMaskW,
			Height:  h * defaultMaskH,
		}},
		Fallback: true,
		ModelID:  fallbackModelID,
	}
}
