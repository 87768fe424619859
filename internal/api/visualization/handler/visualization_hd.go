package visualizationHandler

import (
	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	contextPkg "PaintVisualizer/pkg/context"
	"PaintVisualizer/pkg/handlerUtil"
	"PaintVisualizer/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

// visualizeTimeout covers the detector chain plus both synthesis phases.
var visualizeTimeout = 5 * time.Minute

func (h *VisualizationHandler) CreateVisualization(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), visualizeTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var req visualization.VisualizeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	image, err := h.readImage(ctx, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_image")
	}

	color, err := h.visualizationService.ResolveColor(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "resolve_color")
	}

	h.log.WithFields(log.Fields{
		"request_id":     requestID,
		"color":          color.HexCode,
		"pattern":        req.Pattern,
		"masking_method": req.MaskingMethod,
		"image_bytes":    len(image),
	}).Debug("Processing visualization request")

	result, err := h.visualizationService.Visualize(c, visualization.VisualizeInput{
		Image:         image,
		Color:         color,
		Pattern:       entity.PatternType(req.Pattern),
		MaskingMethod: entity.MaskingMethod(req.MaskingMethod),
		ManualMask:    req.ManualMask,
	})
	if err != nil {
		select {
		case <-c.Done():
			return errHandler.HandleRequestTimeout(ctx)
		default:
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "visualize")
		}
	}

	// A result always carries a picture, even one degraded by the deadline.
	return errHandler.HandleSuccess(ctx, fiber.StatusOK, visualization.VisualizeResponse{
		Data: *result,
	})
}

// readImage takes the multipart "image" file, or image_base64 when no file
// was sent.
func (h *VisualizationHandler) readImage(ctx *fiber.Ctx, req visualization.VisualizeRequest) ([]byte, error) {
	file, err := ctx.FormFile("image")
	if err != nil {
		if req.ImageBase64 == "" {
			return nil, visualization.ErrImageRequired
		}
		return h.utils.DecodeBase64Payload(req.ImageBase64)
	}

	if err := h.utils.ValidateImageFile(file); err != nil {
		return nil, err
	}

	content, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer content.Close()

	return h.utils.ReadFileBytes(content)
}
