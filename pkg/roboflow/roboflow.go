package roboflow

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"PaintVisualizer/internal/entity"
)

type IRoboflow interface {
	Detect(ctx context.Context, model entity.DetectionModel, img *entity.NormalizedImage, confidence, overlap float64) (*entity.DetectionResult, error)
}

type roboflowClient struct {
	apiKey     string
	httpClient *http.Client
}

func New() IRoboflow {
	return NewWithClient(os.Getenv("ROBOFLOW_API_KEY"), &http.Client{Timeout: 30 * time.Second})
}

func NewWithClient(apiKey string, httpClient *http.Client) IRoboflow {
	return &roboflowClient{
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (r *roboflowClient) Detect(
	ctx context.Context,
	model entity.DetectionModel,
	img *entity.NormalizedImage,
	confidence, overlap float64,
) (*entity.DetectionResult, error) {
	endpoint, err := r.buildURL(model.Endpoint, confidence, overlap)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(img.Base64))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector %s returned status %d: %s", model.ID, resp.StatusCode, truncate(string(body), 200))
	}

	result, err := ParseDetection(body)
	if err != nil {
		return nil, err
	}

	result.ModelID = model.ID
	result.Confidence = confidence
	return result, nil
}

// buildURL adds the hosted-inference query parameters. Thresholds travel as
// whole percentages.
func (r *roboflowClient) buildURL(endpoint string, confidence, overlap float64) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse detector endpoint: %w", err)
	}

	q := u.Query()
	if r.apiKey != "" {
		q.Set("api_key", r.apiKey)
	}
	q.Set("confidence", strconv.Itoa(int(confidence*100+0.5)))
	q.Set("overlap", strconv.Itoa(int(overlap*100+0.5)))
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
