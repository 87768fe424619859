package visualizationHandler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"PaintVisualizer/internal/api/visualization"
	"PaintVisualizer/internal/entity"
	"PaintVisualizer/internal/middleware"
	jwtPkg "PaintVisualizer/pkg/jwt"
	"PaintVisualizer/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Visualize(ctx context.Context, in visualization.VisualizeInput) (*entity.VisualizationResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*entity.VisualizationResult)
	return res, args.Error(1)
}

func (m *mockService) ResolveColor(ctx context.Context, req visualization.VisualizeRequest) (entity.ColorSpec, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(entity.ColorSpec), args.Error(1)
}

func (m *mockService) Prepare(raw []byte) (*entity.NormalizedImage, error) {
	args := m.Called(raw)
	res, _ := args.Get(0).(*entity.NormalizedImage)
	return res, args.Error(1)
}

func (m *mockService) Detect(ctx context.Context, img *entity.NormalizedImage) *entity.DetectionResult {
	res, _ := m.Called(ctx, img).Get(0).(*entity.DetectionResult)
	return res
}

func (m *mockService) Synthesize(det *entity.DetectionResult, width, height int) *entity.PaintMask {
	res, _ := m.Called(det, width, height).Get(0).(*entity.PaintMask)
	return res
}

func (m *mockService) SynthesizeFromUserMask(encoded string, width, height int) (*entity.PaintMask, error) {
	args := m.Called(encoded, width, height)
	res, _ := args.Get(0).(*entity.PaintMask)
	return res, args.Error(1)
}

func (m *mockService) ApplyColor(ctx context.Context, img *entity.NormalizedImage, mask *entity.PaintMask, colorHex, colorName string, pattern entity.PatternType) *entity.VisualizationResult {
	res, _ := m.Called(ctx, img, mask, colorHex, colorName, pattern).Get(0).(*entity.VisualizationResult)
	return res
}

func (m *mockService) Recommend(colorHex string, catalog []entity.ColorSpec) []entity.ColorSpec {
	res, _ := m.Called(colorHex, catalog).Get(0).([]entity.ColorSpec)
	return res
}

func (m *mockService) RecommendForColor(ctx context.Context, colorHex string) (*visualization.RecommendationResponse, error) {
	args := m.Called(ctx, colorHex)
	res, _ := args.Get(0).(*visualization.RecommendationResponse)
	return res, args.Error(1)
}

func (m *mockService) ListColors(ctx context.Context, filter visualization.ColorFilter) ([]entity.ColorSpec, error) {
	args := m.Called(ctx, filter)
	res, _ := args.Get(0).([]entity.ColorSpec)
	return res, args.Error(1)
}

func (m *mockService) Patterns() []entity.PatternSpec {
	res, _ := m.Called().Get(0).([]entity.PatternSpec)
	return res
}

func (m *mockService) DetectionConfig() entity.DetectionConfig {
	return m.Called().Get(0).(entity.DetectionConfig)
}

func (m *mockService) UpdateConfidenceProfile(ctx context.Context, req visualization.UpdateProfileRequest) (entity.DetectionConfig, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(entity.DetectionConfig), args.Error(1)
}

func (m *mockService) LoadConfidenceProfile(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

const testSecret = "handler-test-secret"

func newTestApp(t *testing.T) (*fiber.App, *mockService) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_ACCESS_TOKEN_SECRET", testSecret)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &mockService{}
	mw := middleware.New(logger)

	app := fiber.New(fiber.Config{
		JSONEncoder: jsoniter.Marshal,
		JSONDecoder: jsoniter.Unmarshal,
	})
	app.Use(mw.NewRequestIDMiddleware())

	New(logger, validator.New(), mw, svc, utils.New()).Start(app.Group("/api/v1"))
	return app, svc
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, _, err := jwtPkg.Sign(map[string]interface{}{"id": "admin-1", "role": role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + signed
}

func multipartRequest(t *testing.T, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="image"; filename="room.jpg"`)
		header.Set("Content-Type", "image/jpeg")
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/visualizations", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, jsoniter.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateVisualization(t *testing.T) {
	app, svc := newTestApp(t)
	photo := []byte("jpeg bytes")
	slate := entity.ColorSpec{Name: "Slate", HexCode: "#1F2937"}

	svc.On("ResolveColor", mock.Anything, mock.MatchedBy(func(req visualization.VisualizeRequest) bool {
		return req.ColorHex == "#1F2937" && req.ColorName == "Slate"
	})).Return(slate, nil)
	svc.On("Visualize", mock.Anything, mock.MatchedBy(func(in visualization.VisualizeInput) bool {
		return bytes.Equal(in.Image, photo) && in.Color == slate && in.Pattern == entity.PatternOmbre
	})).Return(&entity.VisualizationResult{
		PlainURL:        "https://cdn.example.com/plain.png",
		PatternURL:      "https://cdn.example.com/ombre.png",
		Message:         "Visualization generated with the Ombre pattern",
		Pattern:         entity.PatternOmbre,
		MaskingMethod:   entity.MaskingAI,
		Recommendations: []entity.ColorSpec{},
	}, nil)

	resp, err := app.Test(multipartRequest(t, map[string]string{
		"color_hex":  "#1F2937",
		"color_name": "Slate",
		"pattern":    "ombre",
	}, photo), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDKey))
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "https://cdn.example.com/plain.png", data["plain_url"])
	assert.Equal(t, "https://cdn.example.com/ombre.png", data["pattern_url"])
	assert.Equal(t, "ombre", data["pattern"])
	svc.AssertExpectations(t)
}

func TestCreateVisualizationKeepsDegradedResultPastDeadline(t *testing.T) {
	app, svc := newTestApp(t)

	previous := visualizeTimeout
	visualizeTimeout = 20 * time.Millisecond
	t.Cleanup(func() { visualizeTimeout = previous })

	svc.On("ResolveColor", mock.Anything, mock.Anything).Return(entity.ColorSpec{HexCode: "#1F2937"}, nil)
	svc.On("Visualize", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(&entity.VisualizationResult{
			PlainURL: "https://cdn.example.com/plain.png",
			Message:  "Visualization ready, but the pattern could not be applied",
			Pattern:  entity.PatternOmbre,
		}, nil)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_hex": "#1F2937", "pattern": "ombre"}, []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "https://cdn.example.com/plain.png", data["plain_url"])
	assert.Nil(t, data["pattern_url"])
}

func TestCreateVisualizationErrorPastDeadlineIsTimeout(t *testing.T) {
	app, svc := newTestApp(t)

	previous := visualizeTimeout
	visualizeTimeout = 20 * time.Millisecond
	t.Cleanup(func() { visualizeTimeout = previous })

	svc.On("ResolveColor", mock.Anything, mock.Anything).Return(entity.ColorSpec{HexCode: "#1F2937"}, nil)
	svc.On("Visualize", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_hex": "#1F2937"}, []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusRequestTimeout, resp.StatusCode)
}

func TestCreateVisualizationRequiresImage(t *testing.T) {
	app, svc := newTestApp(t)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_hex": "#1F2937"}, nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "IMAGE_REQUIRED", decodeBody(t, resp)["code"])
	svc.AssertNotCalled(t, "Visualize", mock.Anything, mock.Anything)
}

func TestCreateVisualizationValidatesHex(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_hex": "slate"}, []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, resp)["code"])
}

func TestCreateVisualizationMapsDomainErrors(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("ResolveColor", mock.Anything, mock.Anything).Return(entity.ColorSpec{HexCode: "#1F2937"}, nil)
	svc.On("Visualize", mock.Anything, mock.Anything).Return(nil, visualization.ErrImageDecode)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_hex": "#1F2937"}, []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "IMAGE_DECODE_FAILED", decodeBody(t, resp)["code"])
}

func TestCreateVisualizationUnknownColorID(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("ResolveColor", mock.Anything, mock.Anything).Return(entity.ColorSpec{}, visualization.ErrColorNotFound)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_id": "nope"}, []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCreateVisualizationDefectIsTraced(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("ResolveColor", mock.Anything, mock.Anything).Return(entity.ColorSpec{HexCode: "#1F2937"}, nil)
	svc.On("Visualize", mock.Anything, mock.Anything).Return(nil, visualization.ErrMaskDimensionMismatch)

	resp, err := app.Test(multipartRequest(t, map[string]string{"color_hex": "#1F2937"}, []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, decodeBody(t, resp)["trace_id"])
}

func TestGetRecommendations(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("RecommendForColor", mock.Anything, "#1F2937").Return(&visualization.RecommendationResponse{
		Base:            "#1F2937",
		Recommendations: []entity.ColorSpec{{ID: "amber", HexCode: "#D97706"}},
	}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?color=%231F2937", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "#1F2937", body["base"])
	assert.Len(t, body["recommendations"], 1)
}

func TestGetRecommendationsRequiresColor(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/recommendations", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestListPatterns(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("Patterns").Return(entity.Patterns())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/patterns", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["data"], 11)
}

func TestListColorsPassesFilter(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("ListColors", mock.Anything, visualization.ColorFilter{Brand: "Dulux"}).
		Return([]entity.ColorSpec{{ID: "1", Brand: "Dulux"}}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/colors?brand=Dulux", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody(t, resp)["data"], 1)
	svc.AssertExpectations(t)
}

func TestDetectionProfileRequiresAdminToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/detection-profile", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/detection-profile", nil)
	req.Header.Set("Authorization", token(t, "viewer"))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGetDetectionProfile(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("DetectionConfig").Return(entity.DetectionConfig{
		Models: []entity.DetectionModel{{ID: "walls-a", Enabled: true}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/detection-profile", nil)
	req.Header.Set("Authorization", token(t, jwtPkg.RoleAdmin))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Len(t, data["models"], 1)
}

func TestUpdateDetectionProfile(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("UpdateConfidenceProfile", mock.Anything, mock.MatchedBy(func(req visualization.UpdateProfileRequest) bool {
		return len(req.Models) == 1 && req.Models[0].ID == "walls-a" && *req.Models[0].PrimaryThreshold == 0.6
	})).Return(entity.DetectionConfig{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/detection-profile",
		bytes.NewBufferString(`{"models":[{"id":"walls-a","primary_threshold":0.6}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token(t, jwtPkg.RoleAdmin))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestUpdateDetectionProfileRejectsOutOfRange(t *testing.T) {
	app, svc := newTestApp(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/detection-profile",
		bytes.NewBufferString(`{"overlap_threshold":1.5}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token(t, jwtPkg.RoleAdmin))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	svc.AssertNotCalled(t, "UpdateConfidenceProfile", mock.Anything, mock.Anything)
}

func TestUpdateDetectionProfileSurfacesUnknownModel(t *testing.T) {
	app, svc := newTestApp(t)
	svc.On("UpdateConfidenceProfile", mock.Anything, mock.Anything).
		Return(entity.DetectionConfig{}, visualization.ErrUnknownDetectionModel)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/detection-profile",
		bytes.NewBufferString(`{"models":[{"id":"ghost","enabled":true}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token(t, jwtPkg.RoleAdmin))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_DETECTION_MODEL", decodeBody(t, resp)["code"])
}
