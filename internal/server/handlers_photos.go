package server

import (
	"bufio"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"roadlens/internal/api"
	"roadlens/internal/models"
	"roadlens/internal/provider"
)

const (
	photoUploadMaxBody   = 60 << 20 // 60 MiB across a whole batch
	photoMultipartMemory = 8 << 20  // 8 MiB
	photoFormField       = "file"
)

func (s *Server) handleUploadReportPhotos(w http.ResponseWriter, r *http.Request) {
	s.uploadPhotos(w, r, r.PathValue("report_id"))
}

func (s *Server) handleUploadPhotos(w http.ResponseWriter, r *http.Request) {
	s.uploadPhotos(w, r, "")
}

func (s *Server) uploadPhotos(w http.ResponseWriter, r *http.Request, reportID string) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	s.withLimiter(w, r, s.uploadLimiter, "upload", func() {
		r.Body = http.MaxBytesReader(w, r.Body, int64(photoUploadMaxBody))
		if err := r.ParseMultipartForm(photoMultipartMemory); err != nil {
			s.writeServiceError(w, r, classifyMultipartError(err))
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		headers := r.MultipartForm.File[photoFormField]
		files, closeAll, err := openMultipartFiles(headers)
		defer closeAll()
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		photos, err := s.photos.UploadBatch(r.Context(), userID, reportID, files, s.logFileProgress(r))
		if err != nil {
			var batchErr *BatchUploadError
			if errors.As(err, &batchErr) {
				s.writeBatchFailure(w, r, batchErr)
				return
			}
			s.writeServiceError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusCreated, api.BatchUploadResponse{
			ReportID: strings.TrimSpace(reportID),
			Photos:   s.photoResponses(photos),
		})
	})
}

func openMultipartFiles(headers []*multipart.FileHeader) ([]provider.File, func(), error) {
	closers := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	files := make([]provider.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, closeAll, badRequest(fmt.Errorf("open %s: %w", header.Filename, err))
		}
		closers = append(closers, f)

		buffered := bufio.NewReader(f)
		contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
		if contentType == "" || contentType == "application/octet-stream" {
			peek, _ := buffered.Peek(512)
			contentType = http.DetectContentType(peek)
		}

		files = append(files, provider.File{
			Name:        header.Filename,
			ContentType: contentType,
			Size:        header.Size,
			Body:        buffered,
		})
	}
	return files, closeAll, nil
}

// logFileProgress logs each file once its transfer completes.
func (s *Server) logFileProgress(r *http.Request) FileProgressFunc {
	return func(index int, name string, sent, total int64) {
		if total > 0 && sent == total {
			s.log().Debug("photo transferred", "path", r.URL.Path, "index", index, "file", name, "bytes", sent)
		}
	}
}

func (s *Server) writeBatchFailure(w http.ResponseWriter, r *http.Request, batchErr *BatchUploadError) {
	status := batchErr.Status()
	code, numericCode := batchErr.Code()

	fields := []any{
		"status", status,
		"code", code,
		"report_id", batchErr.ReportID,
		"failed_file", batchErr.FailedFile,
		"failed_index", batchErr.FailedIndex,
		"completed", len(batchErr.Completed),
		"error", batchErr.Err,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if status >= 500 && code == "upload_store_failed" {
		s.log().Error("photo batch failed", fields...)
	} else {
		s.log().Warn("photo batch failed", fields...)
	}

	// Upstream provider messages are safe to show; store errors are not.
	reason := "internal error"
	var uploadErr *provider.UploadError
	if errors.As(batchErr.Err, &uploadErr) {
		reason = uploadErr.Error()
	}
	message := fmt.Sprintf("upload of %q failed after %d of %d files: %s",
		batchErr.FailedFile, len(batchErr.Completed), batchErr.Total, reason)

	pending := batchErr.Pending
	if pending == nil {
		pending = []string{}
	}
	s.writeJSON(w, status, api.BatchFailureResponse{
		ErrorResponse: api.ErrorResponse{Error: message, Code: code, ErrorCode: numericCode},
		ReportID:      batchErr.ReportID,
		FailedFile:    batchErr.FailedFile,
		FailedIndex:   batchErr.FailedIndex,
		Reason:        reason,
		Completed:     s.photoResponses(batchErr.Completed),
		PendingFiles:  pending,
	})
}

func (s *Server) handleListReportPhotos(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	photos, err := s.photos.ListByReport(r.Context(), r.PathValue("report_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.photoResponses(photos))
}

func (s *Server) handleListReportLinks(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	links, err := s.photos.ListLinks(r.Context(), r.PathValue("report_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ReportLinksResponse{
		ReportID: strings.TrimSpace(r.PathValue("report_id")),
		Links:    links,
	})
}

func (s *Server) handleListMyPhotos(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	photos, err := s.photos.ListByOwner(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.photoResponses(photos))
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	photo, err := s.photos.GetPhoto(r.Context(), userID, r.PathValue("photo_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.photoResponse(photo))
}

func (s *Server) handlePhotoThumbnail(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	width, err := queryInt(r, "w", s.photos.thumbWidth)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	height, err := queryInt(r, "h", s.photos.thumbHeight)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if width <= 0 || height <= 0 || width > maxThumbnailEdge || height > maxThumbnailEdge {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("thumbnail size must be between 1 and %d", maxThumbnailEdge), ErrCodeInvalidQuery))
		return
	}

	photo, err := s.photos.GetPhoto(r.Context(), userID, r.PathValue("photo_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	thumbURL := s.photos.ThumbnailURL(photo, width, height)
	if r.URL.Query().Get("redirect") == "1" {
		http.Redirect(w, r, thumbURL, http.StatusFound)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ThumbnailResponse{PhotoID: photo.ID, URL: thumbURL, Width: width, Height: height})
}

const maxThumbnailEdge = 2048

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	if err := s.photos.Delete(r.Context(), userID, r.PathValue("photo_id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReportCapacity(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	count, err := queryInt(r, "count", 1)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	capacity, err := s.photos.Capacity(r.Context(), r.PathValue("report_id"), count)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CapacityResponse{
		ReportID:  capacity.ReportID,
		Current:   capacity.Current,
		Requested: capacity.Requested,
		Max:       capacity.Max,
		Remaining: capacity.Remaining,
		CanAdd:    capacity.CanAdd,
	})
}

func (s *Server) handlePurgeReportPhotos(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	result, err := s.photos.DeleteAllForReport(r.Context(), r.PathValue("report_id"))
	if err != nil && len(result.Failed) == 0 {
		// Rejected or failed before any deletion was attempted.
		s.writeServiceError(w, r, err)
		return
	}

	resp := api.PurgeResponse{ReportID: result.ReportID, Deleted: result.Deleted, Failed: make([]api.PurgeFailure, 0, len(result.Failed))}
	for _, failure := range result.Failed {
		resp.Failed = append(resp.Failed, api.PurgeFailure{PhotoID: failure.PhotoID, Error: "internal error"})
	}
	status := http.StatusOK
	if len(resp.Failed) > 0 {
		status = http.StatusMultiStatus
		s.log().Error("report purge incomplete", "report_id", result.ReportID, "failed", len(resp.Failed), "error", err)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) photoResponse(photo models.PhotoRecord) api.PhotoResponse {
	return api.PhotoResponse{PhotoRecord: photo, ThumbnailURL: s.photos.ThumbnailURL(photo, 0, 0)}
}

func (s *Server) photoResponses(photos []models.PhotoRecord) []api.PhotoResponse {
	out := make([]api.PhotoResponse, 0, len(photos))
	for _, photo := range photos {
		out = append(out, s.photoResponse(photo))
	}
	return out
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidArgument)
}
