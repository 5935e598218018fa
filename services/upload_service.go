package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/bookshelf/server/pkg"
)

// ObjectStore is where uploaded images end up. storage.MinIOStore
// implements it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// UploadService stores book covers and avatars and returns their URL.
type UploadService interface {
	Upload(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*UploadResult, error)
}

type UploadResult struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type uploadService struct {
	store   ObjectStore
	maxSize int64
}

func NewUploadService(store ObjectStore, maxSize int64) UploadService {
	return &uploadService{store: store, maxSize: maxSize}
}

var allowedMimeTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

func (s *uploadService) Upload(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*UploadResult, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: empty file", pkg.ErrBadRequest)
	}
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrBadRequest, s.maxSize/(1024*1024))
	}

	mimeBase := strings.TrimSpace(strings.Split(contentType, ";")[0])
	ext, ok := allowedMimeTypes[mimeBase]
	if !ok {
		return nil, fmt.Errorf("%w: file type not allowed: %s", pkg.ErrBadRequest, mimeBase)
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("failed to generate object name: %w", err)
	}
	key := fmt.Sprintf("uploads/%s/%s_%s%s", userID, hex.EncodeToString(randomBytes), sanitizeFilename(filename), ext)

	url, err := s.store.Put(ctx, key, r, size, mimeBase)
	if err != nil {
		return nil, err
	}

	return &UploadResult{URL: url, Key: key, ContentType: mimeBase, Size: size}, nil
}

// sanitizeFilename keeps the base name without extension, reduced to
// characters that are safe in an object key.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, name)

	if name == "" {
		name = "file"
	}
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
