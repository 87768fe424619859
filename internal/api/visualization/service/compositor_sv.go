package visualizationService

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	synthesisLimit = 1024
	// inpainting models work on latents of 8x8 pixels
	synthesisStep = 8
)

const (
	MsgVisualizationReady       = "Visualization generated successfully"
	MsgPatternApplied           = "Visualization generated with the %s pattern"
	MsgSynthesizerNotConfigured = "Image synthesis is not configured; showing the original photo"
	MsgSynthesisFailed          = "Image synthesis failed; showing the original photo"
	MsgPatternFailed            = "The %s pattern could not be applied; showing the plain color result"
	MsgDefaultRegion            = "No wall was detected, so a default area was painted"
)

var errPhaseOneOutput = errors.New("phase one output unavailable")

// synthesisSize fits the image within the synthesizer limit, keeping aspect
// ratio, and snaps both sides down to the model step.
func synthesisSize(width, height int) (int, int) {
	longest := width
	if height > longest {
		longest = height
	}

	tw, th := width, height
	if longest > synthesisLimit {
		tw = width * synthesisLimit / longest
		th = height * synthesisLimit / longest
	}

	tw -= tw % synthesisStep
	th -= th % synthesisStep
	if tw < synthesisStep {
		tw = synthesisStep
	}
	if th < synthesisStep {
		th = synthesisStep
	}
	return tw, th
}

func renderProfile(profile entity.GenerationProfile, colorName, colorHex string) entity.GenerationProfile {
	profile.Prompt = fmt.Sprintf(profile.Prompt, colorName, colorHex)
	return profile
}

// ApplyColor runs the two synthesis phases. It always returns a displayable
// result: failures degrade to the original photo or the plain fill.
func (s *visualizationService) ApplyColor(
	ctx context.Context,
	img *entity.NormalizedImage,
	mask *entity.PaintMask,
	colorHex, colorName string,
	pattern entity.PatternType,
) *entity.VisualizationResult {
	requestID := contextPkg.GetRequestID(ctx)
	if pattern == "" {
		pattern = entity.PatternPlain
	}

	result := &entity.VisualizationResult{
		Pattern:         pattern,
		Recommendations: []entity.ColorSpec{},
	}

	if s.synthesizer == nil || !s.synthesizer.IsConfigured() {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
		}).Warn("Synthesizer not configured, returning original image")
		return s.degradeToOriginal(ctx, result, img, MsgSynthesizerNotConfigured)
	}

	var artifacts []string
	defer func() {
		if err := s.artifacts.Remove(artifacts...); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Failed to remove synthesis artifacts")
		}
	}()

	tw, th := synthesisSize(img.Width, img.Height)
	resizedImage := imaging.Resize(img.Image, tw, th, imaging.Lanczos)
	resizedMask := resizeMask(mask, tw, th)

	if resizedImage.Bounds().Dx() != resizedMask.Width() || resizedImage.Bounds().Dy() != resizedMask.Height() {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"image":      resizedImage.Bounds().Size().String(),
			"mask":       resizedMask.Bounds().Size().String(),
		}).Error("Resized image and mask disagree")
		return s.degradeToOriginal(ctx, result, img, MsgSynthesisFailed)
	}

	imagePath, err := s.writeImageArtifact("image", resizedImage)
	if err == nil {
		artifacts = append(artifacts, imagePath)
	}
	var maskPath string
	if err == nil {
		maskPath, err = s.writeImageArtifact("mask", resizedMask.Gray)
		if err == nil {
			artifacts = append(artifacts, maskPath)
		}
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to write synthesis artifacts")
		return s.degradeToOriginal(ctx, result, img, MsgSynthesisFailed)
	}

	// Phase 1: plain fill.
	plain, err := s.synthesize(ctx, entity.SynthesisRequest{
		ImagePath: imagePath,
		MaskPath:  maskPath,
		Profile:   renderProfile(entity.PlainProfile, colorName, colorHex),
		Width:     tw,
		Height:    th,
		Seed:      s.opts.Seed,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Plain color synthesis failed")
		return s.degradeToOriginal(ctx, result, img, MsgSynthesisFailed)
	}

	plainURL, err := s.publish(ctx, "plain", plain)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to publish plain result")
		return s.degradeToOriginal(ctx, result, img, MsgSynthesisFailed)
	}

	result.PlainURL = plainURL
	result.Message = MsgVisualizationReady

	if pattern == entity.PatternPlain {
		return result
	}

	spec, ok := entity.LookupPattern(pattern)
	if !ok {
		result.Message = fmt.Sprintf(MsgPatternFailed, pattern)
		result.Degraded = true
		return result
	}

	// Phase 2: pattern over the phase-1 output with the same mask file.
	patternURL, err := s.applyPattern(ctx, plain, spec, resizedMask, maskPath, colorName, colorHex, tw, th, &artifacts)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"pattern":    pattern,
			"error":      err.Error(),
		}).Warn("Pattern synthesis failed, keeping plain result")
		result.Message = fmt.Sprintf(MsgPatternFailed, spec.Label)
		result.Degraded = true
		return result
	}

	result.PatternURL = patternURL
	result.Message = fmt.Sprintf(MsgPatternApplied, spec.Label)
	return result
}

func (s *visualizationService) applyPattern(
	ctx context.Context,
	plain *entity.SynthesisResult,
	spec entity.PatternSpec,
	mask *entity.PaintMask,
	maskPath string,
	colorName, colorHex string,
	tw, th int,
	artifacts *[]string,
) (string, error) {
	requestID := contextPkg.GetRequestID(ctx)

	base, err := s.loadOutput(ctx, plain, tw, th)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errPhaseOneOutput, err)
	}

	basePath, err := s.writeImageArtifact("phase1", base)
	if err != nil {
		return "", err
	}
	*artifacts = append(*artifacts, basePath)

	patterned, err := s.synthesize(ctx, entity.SynthesisRequest{
		ImagePath: basePath,
		MaskPath:  maskPath,
		Profile:   renderProfile(spec.Profile, colorName, colorHex),
		Width:     tw,
		Height:    th,
		Seed:      s.opts.Seed,
	})
	if err != nil {
		return "", err
	}

	overlay, err := s.loadOutput(ctx, patterned, tw, th)
	if err != nil {
		if patterned.URL != "" {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Could not confine pattern to mask, using raw output")
			return patterned.URL, nil
		}
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, confine(base, overlay, mask)); err != nil {
		return "", err
	}

	return s.results.Store(ctx, "pattern", "image/png", buf.Bytes())
}

func (s *visualizationService) synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.SynthesisTimeout)
	defer cancel()

	out, err := s.synthesizer.Synthesize(callCtx, req)
	if err != nil {
		return nil, err
	}
	if out == nil || (out.URL == "" && len(out.Data) == 0) {
		return nil, errors.New("synthesizer returned no image")
	}
	return out, nil
}

// publish returns a displayable URL for a synthesizer output.
func (s *visualizationService) publish(ctx context.Context, kind string, out *entity.SynthesisResult) (string, error) {
	if out.URL != "" {
		return out.URL, nil
	}
	contentType := out.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	return s.results.Store(ctx, kind, contentType, out.Data)
}

// loadOutput decodes a synthesizer output and scales it to the synthesis size.
func (s *visualizationService) loadOutput(ctx context.Context, out *entity.SynthesisResult, tw, th int) (*image.NRGBA, error) {
	data := out.Data
	if len(data) == 0 {
		var err error
		data, err = s.utils.FetchImage(ctx, out.URL)
		if err != nil {
			return nil, err
		}
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if img.Bounds().Dx() == tw && img.Bounds().Dy() == th {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, tw, th, imaging.Lanczos), nil
}

// confine keeps overlay pixels only where the mask paints; everything else
// comes from base. All three share the same dimensions.
func confine(base, overlay *image.NRGBA, mask *entity.PaintMask) *image.NRGBA {
	out := imaging.Clone(base)
	for y := 0; y < mask.Height(); y++ {
		for x := 0; x < mask.Width(); x++ {
			if !mask.IsPaint(x, y) {
				continue
			}
			i := out.PixOffset(x, y)
			j := overlay.PixOffset(x, y)
			copy(out.Pix[i:i+4], overlay.Pix[j:j+4])
		}
	}
	return out
}

func (s *visualizationService) writeImageArtifact(kind string, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode %s artifact: %w", kind, err)
	}
	return s.artifacts.Write(kind, "png", buf.Bytes())
}

func (s *visualizationService) degradeToOriginal(
	ctx context.Context,
	result *entity.VisualizationResult,
	img *entity.NormalizedImage,
	message string,
) *entity.VisualizationResult {
	url, err := s.results.Store(ctx, "original", "image/jpeg", img.Data)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Error("Failed to store original image")
	}

	result.PlainURL = url
	result.PatternURL = ""
	result.Message = message
	result.Degraded = true
	return result
}
