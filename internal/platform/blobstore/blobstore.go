// Package blobstore is the seam to the external object store holding symptom
// images and emergency-education videos. It defines the Store interface, an
// in-memory implementation for development and tests, and an Echo handler
// that dereferences public URLs for the in-memory backend.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingPath        = errors.New("object path is required")
)

// Buckets used by the application.
const (
	BucketMedicalImages   = "medical-images"
	BucketEmergencyVideos = "emergency-videos"
)

// MaxImageSize caps symptom image uploads (10 MB).
const MaxImageSize = 10 * 1024 * 1024

// MaxVideoSize caps emergency video uploads (200 MB).
const MaxVideoSize = 200 * 1024 * 1024

// AllowedContentTypes lists accepted MIME types per bucket.
var AllowedContentTypes = map[string]map[string]bool{
	BucketMedicalImages: {
		"image/png":  true,
		"image/jpeg": true,
		"image/webp": true,
	},
	BucketEmergencyVideos: {
		"video/mp4":       true,
		"video/webm":      true,
		"video/quicktime": true,
	},
}

// MaxSizeFor returns the upload cap for a bucket.
func MaxSizeFor(bucket string) int64 {
	if bucket == BucketEmergencyVideos {
		return MaxVideoSize
	}
	return MaxImageSize
}

// Object describes a stored blob.
type Object struct {
	Bucket      string    `json:"bucket"`
	Path        string    `json:"path"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the contract for blob storage backends. Upload must not
// return until the backend has acknowledged the write: callers persist
// metadata only after Upload succeeds, so a stored reference never dangles.
type Store interface {
	Upload(ctx context.Context, bucket, path, contentType string, content io.Reader) (*Object, error)
	Download(ctx context.Context, bucket, path string) (io.ReadCloser, *Object, error)
	PublicURL(bucket, path string) string
}

type storedObject struct {
	object  Object
	content []byte
}

// InMemoryStore is a thread-safe, in-memory Store for development and tests.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
	baseURL string
}

// NewInMemoryStore returns a ready-to-use InMemoryStore. baseURL is the
// prefix of public URLs, e.g. "http://localhost:8000".
func NewInMemoryStore(baseURL string) *InMemoryStore {
	return &InMemoryStore{
		objects: make(map[string]*storedObject),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func objectKey(bucket, path string) string {
	return bucket + "/" + path
}

// Upload validates inputs, reads the content, computes a SHA-256 hash, and
// stores the object in memory.
func (s *InMemoryStore) Upload(_ context.Context, bucket, path, contentType string, content io.Reader) (*Object, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	if allowed := AllowedContentTypes[bucket]; allowed != nil && !allowed[contentType] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	maxSize := MaxSizeFor(bucket)
	data, err := io.ReadAll(io.LimitReader(content, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	obj := Object{
		Bucket:      bucket,
		Path:        path,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", h),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.objects[objectKey(bucket, path)] = &storedObject{object: obj, content: data}
	s.mu.Unlock()

	out := obj // copy
	return &out, nil
}

// Download returns an io.ReadCloser over the object content and its metadata.
func (s *InMemoryStore) Download(_ context.Context, bucket, path string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	stored, ok := s.objects[objectKey(bucket, path)]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrObjectNotFound
	}

	obj := stored.object // copy
	return io.NopCloser(bytes.NewReader(stored.content)), &obj, nil
}

// PublicURL returns a dereferenceable URL for a stored object.
func (s *InMemoryStore) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/files/%s/%s", s.baseURL, bucket, path)
}

// Handler serves in-memory store content on the public URL layout.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the public file route on the supplied Echo instance.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/files/:bucket/*", h.handleDownload)
}

func (h *Handler) handleDownload(c echo.Context) error {
	bucket := c.Param("bucket")
	path := c.Param("*")

	rc, obj, err := h.store.Download(c.Request().Context(), bucket, path)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, obj.ContentType, rc)
}
