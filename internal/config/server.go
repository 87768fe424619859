package config

import (
	"PaintVisualizer/database/postgres"
	visualizationHandler "PaintVisualizer/internal/api/visualization/handler"
	visualizationRepository "PaintVisualizer/internal/api/visualization/repository"
	visualizationService "PaintVisualizer/internal/api/visualization/service"
	"PaintVisualizer/internal/entity"
	"PaintVisualizer/internal/middleware"
	"PaintVisualizer/pkg/artifact"
	"PaintVisualizer/pkg/gemini"
	"PaintVisualizer/pkg/openai"
	"PaintVisualizer/pkg/redis"
	"PaintVisualizer/pkg/replicate"
	"PaintVisualizer/pkg/roboflow"
	"PaintVisualizer/pkg/s3"
	"PaintVisualizer/pkg/utils"
	websocketPkg "PaintVisualizer/pkg/websocket"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"os"
	"strings"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine          *fiber.App
	db              *sqlx.DB
	log             *logrus.Logger
	middleware      middleware.Middleware
	validator       *validator.Validate
	utils           utils.IUtils
	handlers        []handler
	redisServer     redis.IRedis
	detectorSocket  websocketPkg.IWebsocket
	geminiClient    gemini.IGemini
	s3Client        s3.ItfS3
	synthesizer     visualizationService.Synthesizer
	artifacts       artifact.IStore
	detectionConfig entity.DetectionConfig
	serviceOptions  visualizationService.Options
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.utils == nil {
		server.utils = utils.New()
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithWebSocket(webSocket websocketPkg.IWebsocket) ServerOption {
	return func(s *Server) error {
		s.detectorSocket = webSocket
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, middleware.WithRateLimit(LoadRateLimit()))
		return nil
	}
}

// WithS3Client is optional: without a bucket, results are returned inline.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		if os.Getenv("AWS_BUCKET_NAME") == "" {
			if s.log != nil {
				s.log.Warn("AWS_BUCKET_NAME not set, visualization results will be returned inline")
			}
			return nil
		}

		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithGeminiClient is optional: models using the gemini provider are skipped
// when no key is configured.
func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("GEMINI_API_KEY") == "" {
			return nil
		}

		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

// WithSynthesizer picks the inpainting provider from SYNTHESIZER_PROVIDER.
func WithSynthesizer() ServerOption {
	return func(s *Server) error {
		provider := strings.ToLower(strings.TrimSpace(os.Getenv("SYNTHESIZER_PROVIDER")))
		switch provider {
		case "", "replicate":
			s.synthesizer = replicate.New()
		case "openai":
			s.synthesizer = openai.NewImageEditor()
		default:
			return fmt.Errorf("unknown synthesizer provider %q", provider)
		}

		if !s.synthesizer.IsConfigured() && s.log != nil {
			s.log.WithFields(logrus.Fields{
				"provider": provider,
			}).Warn("Synthesizer credential missing, visualizations will return the original photo")
		}
		return nil
	}
}

func WithArtifactStore() ServerOption {
	return func(s *Server) error {
		if s.utils == nil {
			s.utils = utils.New()
		}
		store, err := artifact.New(os.Getenv("ARTIFACT_DIR"), s.utils)
		if err != nil {
			return err
		}
		s.artifacts = store
		return nil
	}
}

func WithDetectionConfig() ServerOption {
	return func(s *Server) error {
		cfg, err := LoadDetectionConfig()
		if err != nil {
			return err
		}
		s.detectionConfig = cfg
		s.serviceOptions = LoadServiceOptions()
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) detectors() map[entity.DetectorProvider]visualizationService.Detector {
	detectors := map[entity.DetectorProvider]visualizationService.Detector{
		entity.ProviderRoboflow: roboflow.New(),
	}

	var socketEndpoints []string
	for _, m := range s.detectionConfig.Models {
		if m.Provider == entity.ProviderWebsocket && m.Enabled {
			socketEndpoints = append(socketEndpoints, m.Endpoint)
		}
	}
	if s.detectorSocket != nil {
		detectors[entity.ProviderWebsocket] = s.detectorSocket
		websocketPkg.Warm(s.detectorSocket, socketEndpoints...)
	}

	if s.geminiClient != nil {
		detectors[entity.ProviderGemini] = s.geminiClient
	}

	return detectors
}

func (s *Server) RegisterHandler() {
	// Visualization Domain
	visualizationRepo := visualizationRepository.New(s.db, s.log)
	visualizationServices := visualizationService.NewVisualizationService(
		s.log,
		visualizationRepo,
		s.detectors(),
		s.synthesizer,
		visualizationService.NewResultStore(s.s3Client, s.utils, s.log),
		s.artifacts,
		s.redisServer,
		s.utils,
		s.detectionConfig,
		s.serviceOptions,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := visualizationServices.LoadConfidenceProfile(ctx); err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Stored detection profile ignored")
	}
	cancel()

	visualizationHandlers := visualizationHandler.New(s.log, s.validator, s.middleware, visualizationServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, visualizationHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests and releases outbound connections.
func (s *Server) Shutdown() error {
	err := s.engine.Shutdown()

	if s.detectorSocket != nil {
		s.detectorSocket.CloseConnections()
	}
	if s.geminiClient != nil {
		s.geminiClient.Close()
	}
	if s.redisServer != nil {
		s.redisServer.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
