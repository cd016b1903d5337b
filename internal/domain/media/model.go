// Package media implements doctor-authored emergency education videos.
package media

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyVideo is one published education video. VideoURL points at the
// blob store object; the metadata row is written only after the blob
// upload is acknowledged.
type EmergencyVideo struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	VideoURL    string    `json:"video_url"`
	UploadedBy  uuid.UUID `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// VideoWithUploader is a video joined with the publishing doctor's name.
type VideoWithUploader struct {
	EmergencyVideo
	UploaderName string `json:"uploader_name"`
}
