package replicate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"PaintVisualizer/internal/entity"
	"PaintVisualizer/pkg/utils"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultBaseURL = "https://api.replicate.com/v1"

var (
	ErrNotConfigured    = errors.New("replicate api token not configured")
	ErrPredictionFailed = errors.New("prediction failed")
	ErrEmptyOutput      = errors.New("prediction returned no output")
)

type IReplicate interface {
	Synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error)
	IsConfigured() bool
}

type predictionInput struct {
	Image             string  `json:"image"`
	Mask              string  `json:"mask"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt,omitempty"`
	PromptStrength    float64 `json:"prompt_strength"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	Seed              int64   `json:"seed"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumOutputs        int     `json:"num_outputs"`
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string              `json:"id"`
	Status string              `json:"status"`
	Output jsoniter.RawMessage `json:"output"`
	Error  interface{}         `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

type replicateClient struct {
	token        string
	version      string
	baseURL      string
	pollInterval time.Duration
	httpClient   *http.Client
}

func New() IReplicate {
	version := os.Getenv("REPLICATE_MODEL_VERSION")
	if version == "" {
		version = "95b7223104132402a9ae91cc677285bc5eb997834bd2349fa486f53910fd68b3"
	}

	return NewWithClient(os.Getenv("REPLICATE_API_TOKEN"), version, defaultBaseURL, &http.Client{Timeout: 60 * time.Second})
}

func NewWithClient(token, version, baseURL string, httpClient *http.Client) IReplicate {
	return &replicateClient{
		token:        token,
		version:      version,
		baseURL:      baseURL,
		pollInterval: time.Second,
		httpClient:   httpClient,
	}
}

func (r *replicateClient) IsConfigured() bool {
	return r.token != ""
}

func (r *replicateClient) Synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error) {
	if !r.IsConfigured() {
		return nil, ErrNotConfigured
	}

	image, err := fileDataURI(req.ImagePath)
	if err != nil {
		return nil, err
	}
	mask, err := fileDataURI(req.MaskPath)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(predictionRequest{
		Version: r.version,
		Input: predictionInput{
			Image:             image,
			Mask:              mask,
			Prompt:            req.Profile.Prompt,
			NegativePrompt:    req.Profile.NegativePrompt,
			PromptStrength:    req.Profile.Strength,
			GuidanceScale:     req.Profile.Guidance,
			NumInferenceSteps: req.Profile.Steps,
			Seed:              req.Seed,
			Width:             req.Width,
			Height:            req.Height,
			NumOutputs:        1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode prediction: %w", err)
	}

	pred, err := r.do(ctx, http.MethodPost, r.baseURL+"/predictions", body)
	if err != nil {
		return nil, err
	}

	for pred.Status == "starting" || pred.Status == "processing" {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}

		getURL := pred.URLs.Get
		if getURL == "" {
			getURL = r.baseURL + "/predictions/" + pred.ID
		}
		pred, err = r.do(ctx, http.MethodGet, getURL, nil)
		if err != nil {
			return nil, err
		}
	}

	if pred.Status != "succeeded" {
		return nil, fmt.Errorf("%w: status %s: %v", ErrPredictionFailed, pred.Status, pred.Error)
	}

	url, err := firstOutput(pred.Output)
	if err != nil {
		return nil, err
	}

	return &entity.SynthesisResult{URL: url}, nil
}

func (r *replicateClient) do(ctx context.Context, method, url string, body []byte) (*prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Prefer", "wait")
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("replicate returned status %d: %s", resp.StatusCode, string(raw))
	}

	var pred prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}
	return &pred, nil
}

// firstOutput accepts both a single URL and a list of URLs.
func firstOutput(raw jsoniter.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyOutput
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && list[0] != "" {
		return list[0], nil
	}

	return "", ErrEmptyOutput
}

func fileDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read artifact %s: %w", path, err)
	}
	return utils.DataURI(http.DetectContentType(data), data), nil
}
