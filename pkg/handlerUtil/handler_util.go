package handlerUtil

import (
	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/pkg/log"
	"PaintVisualizer/pkg/response"
	"PaintVisualizer/pkg/utils"
	"errors"
	"github.com/gofiber/fiber/v2"
	fiberUtils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

var errorCodes = []struct {
	err  error
	code string
}{
	{visualization.ErrImageRequired, "IMAGE_REQUIRED"},
	{visualization.ErrImageDecode, "IMAGE_DECODE_FAILED"},
	{visualization.ErrColorRequired, "COLOR_REQUIRED"},
	{visualization.ErrInvalidColorHex, "INVALID_COLOR"},
	{visualization.ErrColorNotFound, "COLOR_NOT_FOUND"},
	{visualization.ErrInvalidPattern, "INVALID_PATTERN"},
	{visualization.ErrInvalidMaskingMethod, "INVALID_MASKING_METHOD"},
	{visualization.ErrManualMaskRequired, "MANUAL_MASK_REQUIRED"},
	{visualization.ErrInvalidManualMask, "INVALID_MANUAL_MASK"},
	{visualization.ErrInvalidProfile, "INVALID_PROFILE"},
	{visualization.ErrUnknownDetectionModel, "UNKNOWN_DETECTION_MODEL"},
}

func codeFor(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ""
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) && respErr.Code < fiber.StatusInternalServerError {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  codeFor(err),
		})
	}

	// Upload errors from the multipart layer
	if errors.Is(err, utils.ErrNoFile) || errors.Is(err, utils.ErrNotAnImage) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid image upload")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_IMAGE_UPLOAD",
		})
	}

	if errors.Is(err, utils.ErrFileTooLarge) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("File too large")
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{
			Error: "File too large. Maximum size is 15MB.",
			Code:  "FILE_TOO_LARGE",
		})
	}

	if errors.Is(err, utils.ErrInvalidBase64) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid base64 image")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Image is not valid base64",
			Code:  "INVALID_IMAGE_UPLOAD",
		})
	}

	traceID := log.ErrorWithTraceID(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}, "Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(fiberUtils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
