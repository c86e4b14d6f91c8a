package domain

import (
	"io"
	"strings"
	"time"
)

const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
	MediaText  = "text"
)

var allowedContentTypes = map[string]string{
	"image/jpeg":      MediaImage,
	"image/png":       MediaImage,
	"image/gif":       MediaImage,
	"image/webp":      MediaImage,
	"video/mp4":       MediaVideo,
	"video/webm":      MediaVideo,
	"video/quicktime": MediaVideo,
	"audio/mpeg":      MediaAudio,
	"audio/wav":       MediaAudio,
	"audio/ogg":       MediaAudio,
	"text/plain":      MediaText,
}

// ClassifyContentType maps an allowed MIME type to its media category.
// Parameters such as "; charset=utf-8" are ignored.
func ClassifyContentType(contentType string) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	kind, ok := allowedContentTypes[ct]
	return kind, ok
}

type Media struct {
	ID          string    `json:"id"`
	CapsuleID   string    `json:"capsule_id"`
	Filename    string    `json:"filename"`
	FilePath    string    `json:"-"`
	FileType    string    `json:"file_type"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`

	// Signed URL when the parent capsule is unlocked, nil otherwise.
	FileURL *string `json:"file_url"`
}

// MediaUpload is an incoming file as received by the transport layer.
type MediaUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type SignedURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
