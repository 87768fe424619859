package visualizationService

import (
	"fmt"
	"strings"
	"time"

	"PaintVisualizer/pkg/s3"
	"PaintVisualizer/pkg/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// ResultStore turns synthesized bytes into a URL the caller can display.
type ResultStore interface {
	Store(ctx context.Context, kind string, contentType string, data []byte) (string, error)
}

type resultStore struct {
	s3    s3.ItfS3
	utils utils.IUtils
	log   *logrus.Logger
}

// NewResultStore uploads to S3 when a client is given and falls back to an
// inline data URI otherwise, or when the upload fails.
func NewResultStore(s3Client s3.ItfS3, u utils.IUtils, log *logrus.Logger) ResultStore {
	return &resultStore{
		s3:    s3Client,
		utils: u,
		log:   log,
	}
}

func (r *resultStore) Store(ctx context.Context, kind string, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty %s result", kind)
	}

	if r.s3 == nil || r.utils == nil {
		return utils.DataURI(contentType, data), nil
	}

	id, err := r.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("visualizations/%s-%s.%s", kind, strings.ToLower(id), extensionFor(contentType))
	url, err := r.s3.UploadBytes(ctx, key, contentType, data)
	if err != nil {
		if r.log != nil {
			r.log.WithFields(logrus.Fields{
				"key":   key,
				"error": err.Error(),
			}).Warn("Result upload failed, returning inline image")
		}
		return utils.DataURI(contentType, data), nil
	}

	return url, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
