package media

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const thumbSize = 320

// ObjectStore is the slice of blob storage the service needs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Upload struct {
	Key          string `json:"key"`
	URL          string `json:"url,omitempty"`
	ThumbnailKey string `json:"thumbnail_key"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type Service struct {
	store ObjectStore
	log   *zap.Logger
}

func NewService(store ObjectStore, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// UploadImage stores the original image and a fitted JPEG thumbnail.
func (s *Service) UploadImage(ctx context.Context, userID string, data []byte) (*Upload, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	id := uuid.NewString()
	key := fmt.Sprintf("uploads/%s/%s.jpg", userID, id)
	thumbKey := fmt.Sprintf("uploads/%s/%s_thumb.jpg", userID, id)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	urlStr, err := s.store.Upload(ctx, key, "image/jpeg", buf.Bytes())
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	buf.Reset()
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}
	thumbURL, err := s.store.Upload(ctx, thumbKey, "image/jpeg", buf.Bytes())
	if err != nil {
		// original made it up; report the partial result
		s.log.Warn("thumbnail upload failed", zap.String("key", thumbKey), zap.Error(err))
		return &Upload{Key: key, URL: urlStr}, nil
	}

	return &Upload{Key: key, URL: urlStr, ThumbnailKey: thumbKey, ThumbnailURL: thumbURL}, nil
}
