package visualizationService

import (
	"strings"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"
)

// Visualize is the pipeline entry. Only input validation and an undecodable
// image are returned as errors; every later failure degrades the result.
func (s *visualizationService) Visualize(ctx context.Context, in visualization.VisualizeInput) (*entity.VisualizationResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	in, err := validateInput(in)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Visualization input rejected")
		return nil, err
	}

	img, err := s.Prepare(in.Image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to preprocess uploaded image")
		return nil, err
	}

	var (
		mask      *entity.PaintMask
		detection *entity.DetectionResult
	)

	switch in.MaskingMethod {
	case entity.MaskingManual:
		mask, err = s.SynthesizeFromUserMask(in.ManualMask, img.Width, img.Height)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Manual mask rejected")
			return nil, err
		}
	default:
		detection = s.Detect(ctx, img)
		mask = s.Synthesize(detection, img.Width, img.Height)
	}

	if mask.Width() != img.Width || mask.Height() != img.Height {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"image":      []int{img.Width, img.Height},
			"mask":       []int{mask.Width(), mask.Height()},
		}).Error("Paint mask does not match working image")
		return nil, visualization.ErrMaskDimensionMismatch
	}

	var (
		result          *entity.VisualizationResult
		recommendations []entity.ColorSpec
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result = s.ApplyColor(gctx, img, mask, in.Color.HexCode, in.Color.Name, in.Pattern)
		return nil
	})
	g.Go(func() error {
		recommendations = s.recommendFromCatalog(gctx, in.Color.HexCode)
		return nil
	})
	_ = g.Wait()

	result.Recommendations = recommendations
	result.MaskingMethod = in.MaskingMethod
	if detection != nil {
		result.DetectionModel = detection.ModelID
		result.DetectionFallback = detection.Fallback
		if detection.Fallback {
			result.Message = result.Message + ". " + MsgDefaultRegion
		}
	}

	s.log.WithFields(logrus.Fields{
		"request_id":         requestID,
		"pattern":            in.Pattern,
		"masking_method":     in.MaskingMethod,
		"detection_model":    result.DetectionModel,
		"detection_fallback": result.DetectionFallback,
		"degraded":           result.Degraded,
	}).Info("Visualization completed")

	return result, nil
}

// validateInput checks the request before any stage runs and fills defaults.
func validateInput(in visualization.VisualizeInput) (visualization.VisualizeInput, error) {
	if len(in.Image) == 0 {
		return in, visualization.ErrImageRequired
	}

	if strings.TrimSpace(in.Color.HexCode) == "" {
		return in, visualization.ErrColorRequired
	}
	hex, ok := NormalizeHex(in.Color.HexCode)
	if !ok {
		return in, visualization.ErrInvalidColorHex
	}
	in.Color.HexCode = hex
	if strings.TrimSpace(in.Color.Name) == "" {
		in.Color.Name = hex
	}

	if in.Pattern == "" {
		in.Pattern = entity.PatternPlain
	}
	if _, ok := entity.LookupPattern(in.Pattern); !ok {
		return in, visualization.ErrInvalidPattern
	}

	hasManualMask := strings.TrimSpace(in.ManualMask) != ""
	switch in.MaskingMethod {
	case "":
		in.MaskingMethod = entity.MaskingAI
		if hasManualMask {
			in.MaskingMethod = entity.MaskingManual
		}
	case entity.MaskingAI:
		// a supplied mask is never silently dropped
		if hasManualMask {
			return in, visualization.ErrInvalidMaskingMethod
		}
	case entity.MaskingManual:
	default:
		return in, visualization.ErrInvalidMaskingMethod
	}

	if in.MaskingMethod == entity.MaskingManual && strings.TrimSpace(in.ManualMask) == "" {
		return in, visualization.ErrManualMaskRequired
	}

	return in, nil
}

// ResolveColor loads the colour named by color_id, or builds one from an
// ad-hoc hex code.
func (s *visualizationService) ResolveColor(ctx context.Context, req visualization.VisualizeRequest) (entity.ColorSpec, error) {
	if req.ColorID != "" {
		if s.repository == nil {
			return entity.ColorSpec{}, visualization.ErrColorNotFound
		}

		repo, err := s.repository.NewClient(false)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"error":      err.Error(),
			}).Error("Failed to create new client")
			return entity.ColorSpec{}, err
		}
		return repo.Colors.GetColorByID(ctx, req.ColorID)
	}

	if strings.TrimSpace(req.ColorHex) == "" {
		return entity.ColorSpec{}, visualization.ErrColorRequired
	}

	hex, ok := NormalizeHex(req.ColorHex)
	if !ok {
		return entity.ColorSpec{}, visualization.ErrInvalidColorHex
	}

	name := strings.TrimSpace(req.ColorName)
	if name == "" {
		name = hex
	}

	return entity.ColorSpec{Name: name, HexCode: hex}, nil
}
