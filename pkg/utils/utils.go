package utils

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrNoFile           = errors.New("no file uploaded")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
	ErrNotAnImage       = errors.New("uploaded file is not an image")
	ErrInvalidBase64    = errors.New("invalid base64 payload")
	ErrImageFetchStatus = errors.New("unexpected status fetching image")
)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	ReadFileBytes(file multipart.File) ([]byte, error)
	DecodeBase64Payload(payload string) ([]byte, error)
	FetchImage(ctx context.Context, url string) ([]byte, error)
}

type utils struct {
	maxFileSize int64
	httpClient  *http.Client
}

func New() IUtils {
	return &utils{
		maxFileSize: 15 * 1024 * 1024,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return ErrNotAnImage
	}

	return nil
}

func (u *utils) ReadFileBytes(file multipart.File) ([]byte, error) {
	return io.ReadAll(io.LimitReader(file, u.maxFileSize+1))
}

// DecodeBase64Payload accepts plain standard base64 or a data URI.
func (u *utils) DecodeBase64Payload(payload string) ([]byte, error) {
	return DecodeBase64Payload(payload)
}

func DecodeBase64Payload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return nil, ErrInvalidBase64
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, ErrInvalidBase64
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}
	return data, nil
}

func DataURI(contentType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
}

// FetchImage downloads an image from an http(s) URL or decodes a data URI.
func (u *utils) FetchImage(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return DecodeBase64Payload(url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrImageFetchStatus, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4*u.maxFileSize))
}
