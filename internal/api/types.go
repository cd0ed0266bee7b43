package api

import "roadlens/internal/models"

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// PhotoResponse is a photo record plus its derived thumbnail address.
type PhotoResponse struct {
	models.PhotoRecord
	ThumbnailURL string `json:"thumbnail_url"`
}

// ReportLinksResponse lists a report's links in display order.
type ReportLinksResponse struct {
	ReportID string              `json:"report_id"`
	Links    []models.LinkRecord `json:"links"`
}

// BatchUploadResponse is returned when every file of a batch was stored.
type BatchUploadResponse struct {
	ReportID string          `json:"report_id,omitempty"`
	Photos   []PhotoResponse `json:"photos"`
}

// BatchFailureResponse describes where a batch stopped. Completed photos
// remain stored and linked.
type BatchFailureResponse struct {
	ErrorResponse
	ReportID     string          `json:"report_id,omitempty"`
	FailedFile   string          `json:"failed_file"`
	FailedIndex  int             `json:"failed_index"`
	Reason       string          `json:"reason"`
	Completed    []PhotoResponse `json:"completed"`
	PendingFiles []string        `json:"pending_files"`
}

// CapacityResponse reports remaining room on a report.
type CapacityResponse struct {
	ReportID  string `json:"report_id"`
	Current   int    `json:"current"`
	Requested int    `json:"requested"`
	Max       int    `json:"max"`
	Remaining int    `json:"remaining"`
	CanAdd    bool   `json:"can_add"`
}

// ThumbnailResponse carries a derived thumbnail address.
type ThumbnailResponse struct {
	PhotoID string `json:"photo_id"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// PurgeFailure names one photo a purge could not remove.
type PurgeFailure struct {
	PhotoID string `json:"photo_id"`
	Error   string `json:"error"`
}

// PurgeResponse is the result of removing all photos of a report.
type PurgeResponse struct {
	ReportID string         `json:"report_id"`
	Deleted  []string       `json:"deleted"`
	Failed   []PurgeFailure `json:"failed"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
}
