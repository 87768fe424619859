package visualizationHandler

import (
	visualizationService "PaintVisualizer/internal/api/visualization/service"
	"PaintVisualizer/internal/middleware"
	"PaintVisualizer/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type VisualizationHandler struct {
	log                  *logrus.Logger
	validator            *validator.Validate
	middleware           middleware.Middleware
	visualizationService visualizationService.IVisualizationService
	utils                utils.IUtils
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	vs visualizationService.IVisualizationService,
	utils utils.IUtils,
) *VisualizationHandler {
	return &VisualizationHandler{
		log:                  log,
		validator:            validate,
		middleware:           middleware,
		visualizationService: vs,
		utils:                utils,
	}
}

func (h *VisualizationHandler) Start(srv fiber.Router) {
	srv.Post("/visualizations", h.middleware.NewRateLimiter, h.CreateVisualization)

	srv.Get("/recommendations", h.GetRecommendations)
	srv.Get("/patterns", h.ListPatterns)
	srv.Get("/colors", h.ListColors)

	admin := srv.Group("/admin", h.middleware.NewTokenMiddleware)
	admin.Get("/detection-profile", h.GetDetectionProfile)
	admin.Patch("/detection-profile", h.UpdateDetectionProfile)
}
