package visualization

import (
	"PaintVisualizer/pkg/response"
	"net/http"
)

var (
	ErrImageRequired         = response.NewError(http.StatusBadRequest, "image is required")
	ErrColorRequired         = response.NewError(http.StatusBadRequest, "color is required")
	ErrInvalidColorHex       = response.NewError(http.StatusBadRequest, "invalid color hex code")
	ErrInvalidPattern        = response.NewError(http.StatusBadRequest, "unknown pattern")
	ErrInvalidMaskingMethod  = response.NewError(http.StatusBadRequest, "invalid masking method")
	ErrManualMaskRequired    = response.NewError(http.StatusBadRequest, "manual mask is required for manual masking")
	ErrInvalidManualMask     = response.NewError(http.StatusBadRequest, "manual mask could not be decoded")
	ErrImageDecode           = response.NewError(http.StatusUnprocessableEntity, "uploaded image could not be decoded")
	ErrColorNotFound         = response.NewError(http.StatusNotFound, "color not found")
	ErrInvalidProfile        = response.NewError(http.StatusBadRequest, "invalid confidence profile")
	ErrUnknownDetectionModel = response.NewError(http.StatusBadRequest, "unknown detection model")
	ErrMaskDimensionMismatch = response.NewError(http.StatusInternalServerError, "paint mask dimensions do not match image")
)
