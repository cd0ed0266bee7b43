package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and metrics.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Report evidence.
	mux.HandleFunc("POST /v1/reports/{report_id}/photos", s.handleUploadReportPhotos)
	mux.HandleFunc("GET /v1/reports/{report_id}/photos", s.handleListReportPhotos)
	mux.HandleFunc("DELETE /v1/reports/{report_id}/photos", s.handlePurgeReportPhotos)
	mux.HandleFunc("GET /v1/reports/{report_id}/photos/capacity", s.handleReportCapacity)
	mux.HandleFunc("GET /v1/reports/{report_id}/links", s.handleListReportLinks)

	// Photos.
	mux.HandleFunc("POST /v1/photos", s.handleUploadPhotos)
	mux.HandleFunc("GET /v1/me/photos", s.handleListMyPhotos)
	mux.HandleFunc("GET /v1/photos/{photo_id}", s.handleGetPhoto)
	mux.HandleFunc("DELETE /v1/photos/{photo_id}", s.handleDeletePhoto)
	mux.HandleFunc("GET /v1/photos/{photo_id}/thumbnail", s.handlePhotoThumbnail)

	// Objects stored by the local provider.
	mux.HandleFunc("GET /media/{key...}", s.handleMedia)

	return mux
}
