package visualizationHandler

import (
	"PaintVisualizer/internal/api/visualization"
	contextPkg "PaintVisualizer/pkg/context"
	"PaintVisualizer/pkg/handlerUtil"
	jwtPkg "PaintVisualizer/pkg/jwt"
	"PaintVisualizer/pkg/log"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
	"time"
)

func (h *VisualizationHandler) GetDetectionProfile(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, visualization.DetectionProfileResponse{
		Data: h.visualizationService.DetectionConfig(),
	})
}

func (h *VisualizationHandler) UpdateDetectionProfile(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	admin, err := jwtPkg.GetAdmin(ctx)
	if err != nil {
		return errHandler.HandleUnauthorized(ctx, requestID, "Admin access required")
	}

	var req visualization.UpdateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	cfg, err := h.visualizationService.UpdateConfidenceProfile(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "update_confidence_profile")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"admin_id":   admin.ID,
	}).Info("Detection profile changed")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, visualization.DetectionProfileResponse{
		Data: cfg,
	})
}
