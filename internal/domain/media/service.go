package media

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/gramacare/gramacare/internal/platform/apperr"
	"github.com/gramacare/gramacare/internal/platform/blobstore"
	"github.com/gramacare/gramacare/internal/platform/notifier"
)

type Service struct {
	videos Repository
	blobs  blobstore.Store
	events notifier.Publisher
}

func NewService(videos Repository, blobs blobstore.Store, events notifier.Publisher) *Service {
	return &Service{videos: videos, blobs: blobs, events: events}
}

// PublishInput carries the video metadata; the payload arrives separately
// as a multipart stream.
type PublishInput struct {
	Title       string
	Description string
	Filename    string
	ContentType string
}

// Publish uploads the payload to the blob store and records the video.
// The metadata row references the blob's public URL, so the upload must
// be acknowledged before the row exists; a failed upload leaves no trace
// in the catalog.
func (s *Service) Publish(ctx context.Context, doctorID uuid.UUID, in PublishInput, payload io.Reader) (*EmergencyVideo, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperr.New(apperr.Validation, "title is required")
	}
	if payload == nil {
		return nil, apperr.New(apperr.Validation, "video file is required")
	}

	path := fmt.Sprintf("%s/%s", doctorID, in.Filename)
	obj, err := s.blobs.Upload(ctx, blobstore.BucketEmergencyVideos, path, in.ContentType, payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, err, "video rejected")
	}

	v := &EmergencyVideo{
		Title:       in.Title,
		Description: in.Description,
		VideoURL:    s.blobs.PublicURL(obj.Bucket, obj.Path),
		UploadedBy:  doctorID,
	}
	if err := s.videos.Create(ctx, v); err != nil {
		return nil, apperr.FromDB(err, "video")
	}

	if s.events != nil {
		_ = s.events.Publish(ctx, notifier.Event{
			Table: "emergency_videos",
			Op:    notifier.OpInsert,
			ID:    v.ID.String(),
		})
	}
	return v, nil
}

// List returns published videos, newest first. Open to every signed-in
// user regardless of role.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*VideoWithUploader, int, error) {
	items, total, err := s.videos.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.FromDB(err, "videos")
	}
	return items, total, nil
}

// Get returns one video's metadata.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*EmergencyVideo, error) {
	v, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.FromDB(err, "video")
	}
	return v, nil
}
