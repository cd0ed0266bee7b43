package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxPhotosPerReport caps the number of links one report may hold.
	MaxPhotosPerReport = 5

	// CategoryReportEvidence tags every photo uploaded through the report flow.
	CategoryReportEvidence = "report-evidence"

	DefaultThumbnailWidth  = 150
	DefaultThumbnailHeight = 150

	// UploadDateLayout is the day-granularity layout used for PhotoRecord.UploadDate.
	UploadDateLayout = "2006-01-02"
)

// StoredImage is the provider's description of one uploaded object.
type StoredImage struct {
	ObjectID         string    `json:"object_id"`
	URL              string    `json:"url"`
	SecureURL        string    `json:"secure_url"`
	Format           string    `json:"format,omitempty"`
	Width            int       `json:"width,omitempty"`
	Height           int       `json:"height,omitempty"`
	Bytes            int64     `json:"bytes"`
	OriginalFilename string    `json:"original_filename,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// PublicURL prefers the secure URL.
func (s StoredImage) PublicURL() string {
	if strings.TrimSpace(s.SecureURL) != "" {
		return s.SecureURL
	}
	return s.URL
}

// PhotoRecord is the metadata row describing one uploaded photo.
type PhotoRecord struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	URL         string    `json:"url"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	UploadDate  string    `json:"upload_date"`
	Category    string    `json:"category"`
	SizeBytes   int64     `json:"size_bytes"`
	ReportID    string    `json:"report_id,omitempty"`
	ObjectID    string    `json:"object_id,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Linked reports whether the photo belongs to a report.
func (p PhotoRecord) Linked() bool {
	return strings.TrimSpace(p.ReportID) != ""
}

// LinkRecord attaches a photo to a report at a display position.
type LinkRecord struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	PhotoID   string    `json:"photo_id"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// PhotoPath builds the human-readable upload label stored on a PhotoRecord.
func PhotoPath(reportID, filename string) string {
	filename = strings.TrimSpace(filename)
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return "unlinked/" + filename
	}
	return fmt.Sprintf("reports/%s/%s", reportID, filename)
}

// UploadDateOf formats t at day granularity in UTC.
func UploadDateOf(t time.Time) string {
	return t.UTC().Format(UploadDateLayout)
}
