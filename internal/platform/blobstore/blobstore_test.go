package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestUploadAndDownload(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000")

	content := []byte("fake-png-bytes")
	obj, err := store.Upload(context.Background(), BucketMedicalImages, "req-1/photo.png", "image/png", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if obj.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", obj.Size, len(content))
	}
	if obj.Hash == "" {
		t.Error("expected non-empty hash")
	}

	rc, got, err := store.Download(context.Background(), BucketMedicalImages, "req-1/photo.png")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if !bytes.Equal(data, content) {
		t.Error("downloaded content does not match uploaded content")
	}
	if got.ContentType != "image/png" {
		t.Errorf("content type = %q", got.ContentType)
	}
}

func TestUploadRejectsInvalidContentType(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000")

	_, err := store.Upload(context.Background(), BucketMedicalImages, "x.exe", "application/octet-stream", strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("err = %v, want ErrInvalidContentType", err)
	}

	_, err = store.Upload(context.Background(), BucketEmergencyVideos, "clip.png", "image/png", strings.NewReader("x"))
	if !errors.Is(err, ErrInvalidContentType) {
		t.Errorf("video bucket accepted image type: %v", err)
	}
}

func TestUploadRejectsOversizedContent(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000")

	big := bytes.NewReader(make([]byte, MaxImageSize+1))
	_, err := store.Upload(context.Background(), BucketMedicalImages, "big.png", "image/png", big)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestUploadRequiresPath(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000")

	_, err := store.Upload(context.Background(), BucketMedicalImages, "", "image/png", strings.NewReader("x"))
	if !errors.Is(err, ErrMissingPath) {
		t.Errorf("err = %v, want ErrMissingPath", err)
	}
}

func TestDownloadUnknownObject(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000")

	_, _, err := store.Download(context.Background(), BucketMedicalImages, "missing.png")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("err = %v, want ErrObjectNotFound", err)
	}
}

func TestPublicURL(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000/")

	got := store.PublicURL(BucketEmergencyVideos, "cpr/basics.mp4")
	want := "http://localhost:8000/files/emergency-videos/cpr/basics.mp4"
	if got != want {
		t.Errorf("PublicURL = %q, want %q", got, want)
	}
}

func TestHandlerServesStoredObject(t *testing.T) {
	store := NewInMemoryStore("http://localhost:8000")
	if _, err := store.Upload(context.Background(), BucketMedicalImages, "a/b.png", "image/png", strings.NewReader("pixels")); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	e := echo.New()
	NewHandler(store).RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/files/medical-images/a/b.png", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "pixels" {
		t.Errorf("body = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/files/medical-images/nope.png", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing object status = %d", rec.Code)
	}
}
