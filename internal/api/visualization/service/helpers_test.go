package visualizationService

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"
	"testing"

	"PaintVisualizer/internal/api/visualization"
	visualizationRepository "PaintVisualizer/internal/api/visualization/repository"
	"PaintVisualizer/internal/entity"
	"PaintVisualizer/pkg/artifact"
	"PaintVisualizer/pkg/redis"
	"PaintVisualizer/pkg/utils"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type detectCall struct {
	modelID    string
	confidence float64
	overlap    float64
}

type fakeDetector struct {
	mu      sync.Mutex
	calls   []detectCall
	respond func(model entity.DetectionModel, confidence float64) (*entity.DetectionResult, error)
}

func (f *fakeDetector) Detect(ctx context.Context, model entity.DetectionModel, img *entity.NormalizedImage, confidence, overlap float64) (*entity.DetectionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, detectCall{modelID: model.ID, confidence: confidence, overlap: overlap})
	f.mu.Unlock()

	if f.respond == nil {
		return nil, errors.New("detector unavailable")
	}
	return f.respond(model, confidence)
}

func (f *fakeDetector) Calls() []detectCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]detectCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type synthCall struct {
	req       entity.SynthesisRequest
	maskBytes []byte
}

type fakeSynthesizer struct {
	configured bool
	mu         sync.Mutex
	calls      []synthCall
	respond    func(call int, req entity.SynthesisRequest) (*entity.SynthesisResult, error)
}

func (f *fakeSynthesizer) IsConfigured() bool {
	return f.configured
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error) {
	maskBytes, _ := os.ReadFile(req.MaskPath)

	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, synthCall{req: req, maskBytes: maskBytes})
	f.mu.Unlock()

	return f.respond(call, req)
}

func (f *fakeSynthesizer) Calls() []synthCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]synthCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeColors struct {
	colors []entity.ColorSpec
	err    error
}

func (f *fakeColors) ListColors(c context.Context, filter visualization.ColorFilter) ([]entity.ColorSpec, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.colors, nil
}

func (f *fakeColors) GetColorByID(c context.Context, id string) (entity.ColorSpec, error) {
	for _, spec := range f.colors {
		if spec.ID == id {
			return spec, nil
		}
	}
	return entity.ColorSpec{}, visualization.ErrColorNotFound
}

type fakeRepository struct {
	colors *fakeColors
}

func (f *fakeRepository) NewClient(tx bool) (visualizationRepository.Client, error) {
	return visualizationRepository.Client{
		Colors:   f.colors,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type serviceFixture struct {
	svc         *visualizationService
	detector    *fakeDetector
	synthesizer *fakeSynthesizer
	colors      *fakeColors
	artifactDir string
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	models []entity.DetectionModel
	redis  redis.IRedis
}

func withModels(models ...entity.DetectionModel) fixtureOption {
	return func(c *fixtureConfig) { c.models = models }
}

func withRedis(r redis.IRedis) fixtureOption {
	return func(c *fixtureConfig) { c.redis = r }
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newFixture(t *testing.T, opts ...fixtureOption) *serviceFixture {
	t.Helper()

	cfg := fixtureConfig{
		models: []entity.DetectionModel{
			{ID: "walls-a", Endpoint: "http://detector/a", Kind: entity.CapabilityBoxDetection, Provider: entity.ProviderRoboflow, Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	u := utils.New()
	dir := t.TempDir()
	store, err := artifact.New(dir, u)
	require.NoError(t, err)

	detector := &fakeDetector{}
	synthesizer := &fakeSynthesizer{}
	colors := &fakeColors{}
	logger := quietLogger()

	svc := NewVisualizationService(
		logger,
		&fakeRepository{colors: colors},
		map[entity.DetectorProvider]Detector{entity.ProviderRoboflow: detector},
		synthesizer,
		NewResultStore(nil, nil, logger),
		store,
		cfg.redis,
		u,
		entity.DetectionConfig{
			Models: cfg.models,
			Profile: entity.ConfidenceProfile{
				Thresholds:       map[string]entity.ModelThreshold{},
				OverlapThreshold: entity.DefaultOverlapThreshold,
				MinAreaFraction:  entity.DefaultMinAreaFraction,
			},
		},
		Options{},
	).(*visualizationService)

	return &serviceFixture{
		svc:         svc,
		detector:    detector,
		synthesizer: synthesizer,
		colors:      colors,
		artifactDir: dir,
	}
}

func (f *serviceFixture) artifactCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.artifactDir)
	require.NoError(t, err)
	return len(entries)
}

func solidImage(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func workingImage(t *testing.T, w, h int) *entity.NormalizedImage {
	t.Helper()
	img := solidImage(w, h, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	data := encodeJPEG(t, img)
	return &entity.NormalizedImage{Image: img, Data: data, Width: w, Height: h}
}

func decodeResultURL(t *testing.T, url string) image.Image {
	t.Helper()
	data, err := utils.DecodeBase64Payload(url)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func wallRegion(cx, cy, w, h, confidence float64) entity.Region {
	return entity.Region{Label: "wall", CenterX: cx, CenterY: cy, Width: w, Height: h, Confidence: confidence}
}

func boxes(regions ...entity.Region) *entity.DetectionResult {
	return &entity.DetectionResult{Shape: entity.ShapeBoxes, Regions: regions}
}
