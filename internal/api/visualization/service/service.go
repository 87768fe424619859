package visualizationService

import (
	"sync"
	"sync/atomic"
	"time"

	"PaintVisualizer/internal/api/visualization"
	visualizationRepository "PaintVisualizer/internal/api/visualization/repository"
	"PaintVisualizer/internal/entity"
	"PaintVisualizer/pkg/artifact"
	"PaintVisualizer/pkg/redis"
	"PaintVisualizer/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Detector is one surface detector transport.
type Detector interface {
	Detect(ctx context.Context, model entity.DetectionModel, img *entity.NormalizedImage, confidence, overlap float64) (*entity.DetectionResult, error)
}

// Synthesizer is the external inpainting provider. IsConfigured reports
// whether a credential is present.
type Synthesizer interface {
	Synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error)
	IsConfigured() bool
}

type IVisualizationService interface {
	Visualize(ctx context.Context, in visualization.VisualizeInput) (*entity.VisualizationResult, error)
	ResolveColor(ctx context.Context, req visualization.VisualizeRequest) (entity.ColorSpec, error)

	Prepare(raw []byte) (*entity.NormalizedImage, error)
	Detect(ctx context.Context, img *entity.NormalizedImage) *entity.DetectionResult
	Synthesize(det *entity.DetectionResult, width, height int) *entity.PaintMask
	SynthesizeFromUserMask(encoded string, width, height int) (*entity.PaintMask, error)
	ApplyColor(ctx context.Context, img *entity.NormalizedImage, mask *entity.PaintMask, colorHex, colorName string, pattern entity.PatternType) *entity.VisualizationResult
	Recommend(colorHex string, catalog []entity.ColorSpec) []entity.ColorSpec

	RecommendForColor(ctx context.Context, colorHex string) (*visualization.RecommendationResponse, error)
	ListColors(ctx context.Context, filter visualization.ColorFilter) ([]entity.ColorSpec, error)
	Patterns() []entity.PatternSpec

	DetectionConfig() entity.DetectionConfig
	UpdateConfidenceProfile(ctx context.Context, req visualization.UpdateProfileRequest) (entity.DetectionConfig, error)
	LoadConfidenceProfile(ctx context.Context) error
}

type Options struct {
	DetectTimeout    time.Duration
	SynthesisTimeout time.Duration
	Seed             int64
}

const (
	defaultDetectTimeout    = 15 * time.Second
	defaultSynthesisTimeout = 120 * time.Second
	defaultSeed             = 42
)

func (o Options) withDefaults() Options {
	if o.DetectTimeout <= 0 {
		o.DetectTimeout = defaultDetectTimeout
	}
	if o.SynthesisTimeout <= 0 {
		o.SynthesisTimeout = defaultSynthesisTimeout
	}
	if o.Seed == 0 {
		o.Seed = defaultSeed
	}
	return o
}

type visualizationService struct {
	log         *logrus.Logger
	repository  visualizationRepository.Repository
	detectors   map[entity.DetectorProvider]Detector
	synthesizer Synthesizer
	results     ResultStore
	artifacts   artifact.IStore
	redis       redis.IRedis
	utils       utils.IUtils
	opts        Options

	config   atomic.Pointer[entity.DetectionConfig]
	updateMu sync.Mutex
}

func NewVisualizationService(
	log *logrus.Logger,
	repository visualizationRepository.Repository,
	detectors map[entity.DetectorProvider]Detector,
	synthesizer Synthesizer,
	results ResultStore,
	artifacts artifact.IStore,
	redis redis.IRedis,
	utils utils.IUtils,
	detectionConfig entity.DetectionConfig,
	opts Options,
) IVisualizationService {
	if results == nil {
		results = NewResultStore(nil, utils, log)
	}

	s := &visualizationService{
		log:         log,
		repository:  repository,
		detectors:   detectors,
		synthesizer: synthesizer,
		results:     results,
		artifacts:   artifacts,
		redis:       redis,
		utils:       utils,
		opts:        opts.withDefaults(),
	}

	cfg := detectionConfig.Clone()
	s.config.Store(&cfg)

	return s
}
