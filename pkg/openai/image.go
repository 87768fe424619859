package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"PaintVisualizer/internal/entity"
	"github.com/disintegration/imaging"
	"github.com/sashabaranov/go-openai"
)

const (
	editSide        = 1024
	maxPromptLength = 1000
)

var (
	ErrNotConfigured = errors.New("openai api key not configured")
	ErrEmptyResponse = errors.New("openai returned no image")
)

type IImageEditor interface {
	Synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error)
	IsConfigured() bool
}

type imageEditor struct {
	client *openai.Client
	apiKey string
	model  string
}

func NewImageEditor() IImageEditor {
	return NewImageEditorWithBaseURL(os.Getenv("OPENAI_API_KEY"), os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_IMAGE_MODEL"))
}

func NewImageEditorWithBaseURL(apiKey, baseURL, model string) IImageEditor {
	if model == "" {
		model = openai.CreateImageModelDallE2
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &imageEditor{
		client: openai.NewClientWithConfig(cfg),
		apiKey: apiKey,
		model:  model,
	}
}

func (e *imageEditor) IsConfigured() bool {
	return e.apiKey != ""
}

// Synthesize runs an image edit. The edit endpoint only takes square images
// with the editable area marked transparent, so the source is padded to a
// square, the mask is converted to alpha, and the output is cropped back.
func (e *imageEditor) Synthesize(ctx context.Context, req entity.SynthesisRequest) (*entity.SynthesisResult, error) {
	if !e.IsConfigured() {
		return nil, ErrNotConfigured
	}

	src, err := imaging.Open(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("open image artifact: %w", err)
	}
	maskSrc, err := imaging.Open(req.MaskPath)
	if err != nil {
		return nil, fmt.Errorf("open mask artifact: %w", err)
	}

	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	side := width
	if height > side {
		side = height
	}

	squareImage := imaging.Resize(padSquare(src, side), editSide, editSide, imaging.Lanczos)
	squareMask := imaging.Resize(alphaMask(maskSrc, side), editSide, editSide, imaging.NearestNeighbor)

	dir := filepath.Dir(req.ImagePath)
	imageFile, err := writeTempPNG(dir, "openai-image-*.png", squareImage)
	if err != nil {
		return nil, err
	}
	defer removeTemp(imageFile)

	maskFile, err := writeTempPNG(dir, "openai-mask-*.png", squareMask)
	if err != nil {
		return nil, err
	}
	defer removeTemp(maskFile)

	editReq := openai.ImageEditRequest{
		Image:  imageFile,
		Mask:   maskFile,
		Prompt: buildPrompt(req.Profile),
		Model:  e.model,
		N:      1,
		Size:   openai.CreateImageSize1024x1024,
	}
	if e.model == openai.CreateImageModelDallE2 {
		editReq.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := e.client.CreateEditImage(ctx, editReq)
	if err != nil {
		return nil, fmt.Errorf("create image edit: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	if resp.Data[0].B64JSON == "" {
		if resp.Data[0].URL == "" {
			return nil, ErrEmptyResponse
		}
		return &entity.SynthesisResult{URL: resp.Data[0].URL}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode edit output: %w", err)
	}

	out, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode edit output: %w", err)
	}

	cropped := imaging.Crop(imaging.Resize(out, side, side, imaging.Lanczos), image.Rect(0, 0, width, height))
	if req.Width > 0 && req.Height > 0 && (cropped.Bounds().Dx() != req.Width || cropped.Bounds().Dy() != req.Height) {
		cropped = imaging.Resize(cropped, req.Width, req.Height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("encode edit output: %w", err)
	}

	return &entity.SynthesisResult{Data: buf.Bytes(), ContentType: "image/png"}, nil
}

func padSquare(src image.Image, side int) *image.NRGBA {
	bg := imaging.New(side, side, color.White)
	return imaging.Paste(bg, src, image.Pt(0, 0))
}

// alphaMask turns a paint mask (white = paint) into the edit endpoint's
// convention (transparent = edit). Padding stays opaque.
func alphaMask(mask image.Image, side int) *image.NRGBA {
	dst := imaging.New(side, side, color.NRGBA{A: 255})
	bounds := mask.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(mask.At(x, y)).(color.Gray)
			if gray.Y >= 128 {
				dst.SetNRGBA(x-bounds.Min.X, y-bounds.Min.Y, color.NRGBA{})
			}
		}
	}
	return dst
}

func buildPrompt(profile entity.GenerationProfile) string {
	prompt := profile.Prompt
	if profile.NegativePrompt != "" {
		prompt += ". Avoid: " + profile.NegativePrompt
	}
	if utf8.RuneCountInString(prompt) > maxPromptLength {
		prompt = strings.TrimSpace(string([]rune(prompt)[:maxPromptLength]))
	}
	return prompt
}

func writeTempPNG(dir, pattern string, img image.Image) (*os.File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	if err := png.Encode(f, img); err != nil {
		removeTemp(f)
		return nil, fmt.Errorf("encode temp png: %w", err)
	}

	if _, err := f.Seek(0, 0); err != nil {
		removeTemp(f)
		return nil, fmt.Errorf("rewind temp png: %w", err)
	}

	return f, nil
}

func removeTemp(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}
