package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"PaintVisualizer/internal/entity"
	"github.com/google/generative-ai-go/genai"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/api/option"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const surfacePrompt = `You are locating paintable interior walls in a room photo of %dx%d pixels.
Return only JSON in this exact format, with pixel coordinates where x and y are the box center:
{
	"regions": [
		{"label": "wall", "x": 320, "y": 240, "width": 400, "height": 300, "confidence": 0.87}
	]
}
Use the label "wall" for wall surfaces and a short lowercase noun for anything else you report.
If no wall is visible return {"regions": []}.`

type IGemini interface {
	AnalyzeImage(ctx context.Context, base64Image string, prompt string) (string, error)
	Detect(ctx context.Context, model entity.DetectionModel, img *entity.NormalizedImage, confidence, overlap float64) (*entity.DetectionResult, error)
	Close()
}

type geminiClient struct {
	apiKey    string
	modelName string
	client    *genai.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		apiKey:    apiKey,
		modelName: modelName,
		client:    client,
	}, nil
}

func (g *geminiClient) AnalyzeImage(ctx context.Context, base64Image string, prompt string) (string, error) {
	imgData, err := base64.StdEncoding.DecodeString(base64Image)
	if err != nil {
		return "", errors.New("invalid base64 image data")
	}

	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"

	if prompt == "" {
		prompt = "Analyze this image and provide details in JSON format."
	}

	img := genai.ImageData("jpeg", imgData)
	res, err := model.GenerateContent(ctx, genai.Text(prompt), img)
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	response := res.Candidates[0].Content.Parts[0]
	text, ok := response.(genai.Text)
	if !ok {
		return "", errors.New("unexpected response format from Gemini API")
	}

	return string(text), nil
}

// Detect asks the vision model for wall boxes. The model has no native
// threshold, so regions under confidence are dropped locally.
func (g *geminiClient) Detect(
	ctx context.Context,
	model entity.DetectionModel,
	img *entity.NormalizedImage,
	confidence, overlap float64,
) (*entity.DetectionResult, error) {
	text, err := g.AnalyzeImage(ctx, img.Base64, fmt.Sprintf(surfacePrompt, img.Width, img.Height))
	if err != nil {
		return nil, err
	}

	result, err := ParseSurfaces(text, confidence)
	if err != nil {
		return nil, err
	}

	result.ModelID = model.ID
	return result, nil
}

func (g *geminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

type surfaceRegion struct {
	Label      string  `json:"label"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

type surfaceResponse struct {
	Regions []surfaceRegion `json:"regions"`
}

func ParseSurfaces(response string, confidence float64) (*entity.DetectionResult, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")

	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, errors.New("cannot find valid JSON in response")
	}

	var parsed surfaceResponse
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, err
	}

	regions := make([]entity.Region, 0, len(parsed.Regions))
	for _, r := range parsed.Regions {
		if r.Confidence < confidence {
			continue
		}
		regions = append(regions, entity.Region{
			Label:      strings.ToLower(strings.TrimSpace(r.Label)),
			CenterX:    r.X,
			CenterY:    r.Y,
			Width:      r.Width,
			Height:     r.Height,
			Confidence: r.Confidence,
		})
	}

	return &entity.DetectionResult{
		Shape:      entity.ShapeBoxes,
		Regions:    regions,
		Confidence: confidence,
	}, nil
}
