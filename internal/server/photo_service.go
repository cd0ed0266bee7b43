package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"roadlens/internal/models"
	"roadlens/internal/provider"
	"roadlens/internal/store"
)

// PhotoService owns quota checks, batch linkage, retrieval and deletion of
// report evidence photos.
type PhotoService struct {
	store    store.EvidenceStore
	uploader provider.Uploader

	deliveryBase string
	thumbWidth   int
	thumbHeight  int

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// PhotoServiceOptions tunes a PhotoService.
type PhotoServiceOptions struct {
	// DeliveryBaseURL is where thumbnail transformations are served from.
	DeliveryBaseURL string
	ThumbnailWidth  int
	ThumbnailHeight int
	Logger          *slog.Logger
	Metrics         *Metrics
}

// Capacity describes how many more photos a report can take.
type Capacity struct {
	ReportID  string `json:"report_id"`
	Current   int    `json:"current"`
	Requested int    `json:"requested"`
	Max       int    `json:"max"`
	Remaining int    `json:"remaining"`
	CanAdd    bool   `json:"can_add"`
}

// PurgeFailure records one photo DeleteAllForReport could not remove.
type PurgeFailure struct {
	PhotoID string `json:"photo_id"`
	Error   string `json:"error"`
}

// PurgeResult reports a best-effort purge of a report's photos.
type PurgeResult struct {
	ReportID string         `json:"report_id"`
	Deleted  []string       `json:"deleted"`
	Failed   []PurgeFailure `json:"failed"`
}

// NewPhotoService constructs a PhotoService.
func NewPhotoService(st store.EvidenceStore, uploader provider.Uploader, opts PhotoServiceOptions) *PhotoService {
	width, height := opts.ThumbnailWidth, opts.ThumbnailHeight
	if width <= 0 {
		width = models.DefaultThumbnailWidth
	}
	if height <= 0 {
		height = models.DefaultThumbnailHeight
	}
	return &PhotoService{
		store:        st,
		uploader:     uploader,
		deliveryBase: strings.TrimSpace(opts.DeliveryBaseURL),
		thumbWidth:   width,
		thumbHeight:  height,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *PhotoService) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// Capacity reads the current link count for reportID and evaluates whether
// requested more photos fit.
func (s *PhotoService) Capacity(ctx context.Context, reportID string, requested int) (Capacity, error) {
	reportID, err := validateReportID(reportID)
	if err != nil {
		return Capacity{}, err
	}
	if requested < 0 {
		return Capacity{}, badRequestCode(fmt.Errorf("count must be non-negative"), ErrCodeInvalidQuery)
	}

	current, err := s.store.CountLinksByReport(ctx, reportID)
	if err != nil {
		return Capacity{}, storeFailure(fmt.Errorf("count photos for report %s: %w", reportID, err))
	}

	remaining := models.MaxPhotosPerReport - current
	if remaining < 0 {
		remaining = 0
	}
	return Capacity{
		ReportID:  reportID,
		Current:   current,
		Requested: requested,
		Max:       models.MaxPhotosPerReport,
		Remaining: remaining,
		CanAdd:    current+requested <= models.MaxPhotosPerReport,
	}, nil
}

// CanAddPhotos reports whether reportID can take requested more photos.
// The answer is advisory: concurrent batches can still overshoot.
func (s *PhotoService) CanAddPhotos(ctx context.Context, reportID string, requested int) (bool, error) {
	if requested == 0 {
		if _, err := validateReportID(reportID); err != nil {
			return false, err
		}
		return true, nil
	}
	capacity, err := s.Capacity(ctx, reportID, requested)
	if err != nil {
		return false, err
	}
	return capacity.CanAdd, nil
}

// UploadBatch uploads files one at a time and records each photo, linking it
// to reportID when one is given. The first failure stops the batch; photos
// already recorded are kept and returned alongside a *BatchUploadError.
func (s *PhotoService) UploadBatch(ctx context.Context, ownerID, reportID string, files []provider.File, onFileProgress FileProgressFunc) ([]models.PhotoRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, unauthenticated()
	}
	if len(files) == 0 {
		return nil, badRequestCode(fmt.Errorf("at least one file is required"), ErrCodeMissingRequired)
	}
	if len(files) > models.MaxPhotosPerReport {
		s.metrics.recordBatch(batchOutcomeRejected, len(files))
		return nil, batchTooLarge(len(files))
	}
	for i, file := range files {
		if file.Body == nil {
			return nil, badRequestCode(fmt.Errorf("file %d has no content", i), ErrCodeMissingRequired)
		}
	}

	startCount := 0
	if strings.TrimSpace(reportID) != "" {
		normalized, err := validateReportID(reportID)
		if err != nil {
			return nil, err
		}
		reportID = normalized

		current, err := s.store.CountLinksByReport(ctx, reportID)
		if err != nil {
			return nil, storeFailure(fmt.Errorf("count photos for report %s: %w", reportID, err))
		}
		if current+len(files) > models.MaxPhotosPerReport {
			s.metrics.recordBatch(batchOutcomeRejected, len(files))
			return nil, quotaExceeded(reportID, current, len(files))
		}
		startCount = current
	} else {
		reportID = ""
	}

	run := newBatchRun(s, ownerID, reportID, startCount, files, onFileProgress)
	for run.state() == batchUploading {
		run.step(ctx)
	}

	if run.state() == batchFailed {
		s.metrics.recordBatch(batchOutcomeFailed, len(files))
		s.log().Warn("photo batch stopped",
			"state", run.state(),
			"report_id", reportID,
			"owner_id", ownerID,
			"completed", len(run.completed),
			"total", len(files),
			"error", run.failure)
		return run.completedRecords(), run.failure
	}

	s.metrics.recordBatch(batchOutcomeSucceeded, len(files))
	s.log().Info("photo batch stored", "report_id", reportID, "owner_id", ownerID, "count", len(files))
	return run.completedRecords(), nil
}

// recordPhoto persists the PhotoRecord for one stored object and, when
// linked, its LinkRecord at position order.
func (s *PhotoService) recordPhoto(ctx context.Context, ownerID, reportID string, file provider.File, stored models.StoredImage, order int) (models.PhotoRecord, error) {
	photoID, err := store.GeneratePhotoID(func(id string) (bool, error) {
		return s.store.PhotoExists(ctx, id)
	})
	if err != nil {
		return models.PhotoRecord{}, storeFailure(fmt.Errorf("generate photo id: %w", err))
	}

	now := s.now()
	size := stored.Bytes
	if size <= 0 {
		size = file.Size
	}
	if size < 0 {
		size = 0
	}
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" && stored.Format != "" {
		contentType = "image/" + strings.ToLower(stored.Format)
	}

	photo := models.PhotoRecord{
		ID:          photoID,
		OwnerID:     ownerID,
		URL:         stored.PublicURL(),
		Path:        models.PhotoPath(reportID, firstNonEmpty(stored.OriginalFilename, file.Name)),
		Name:        firstNonEmpty(file.Name, stored.OriginalFilename, photoID),
		UploadDate:  models.UploadDateOf(now),
		Category:    models.CategoryReportEvidence,
		SizeBytes:   size,
		ReportID:    reportID,
		ObjectID:    stored.ObjectID,
		ContentType: contentType,
		CreatedAt:   now,
	}
	if err := s.store.CreatePhoto(ctx, &photo); err != nil {
		return models.PhotoRecord{}, storeFailure(fmt.Errorf("record photo %q: %w", file.Name, err))
	}

	if !photo.Linked() {
		return photo, nil
	}

	linkID, err := store.GenerateLinkID(func(id string) (bool, error) {
		return s.store.LinkExists(ctx, id)
	})
	if err == nil {
		err = s.store.CreateLink(ctx, &models.LinkRecord{
			ID:        linkID,
			ReportID:  reportID,
			PhotoID:   photo.ID,
			Order:     order,
			CreatedAt: now,
		})
	}
	if err != nil {
		// An unlinked row would otherwise surface in the owner's gallery
		// under a report it never joined.
		if cleanupErr := s.store.DeletePhoto(context.WithoutCancel(ctx), photo.ID); cleanupErr != nil {
			s.log().Warn("remove unlinked photo", "photo_id", photo.ID, "error", cleanupErr)
		}
		return models.PhotoRecord{}, storeFailure(fmt.Errorf("link photo %q to report %s: %w", file.Name, reportID, err))
	}
	return photo, nil
}

// ListByReport returns the photos linked to reportID, oldest upload first.
func (s *PhotoService) ListByReport(ctx context.Context, reportID string) ([]models.PhotoRecord, error) {
	reportID, err := validateReportID(reportID)
	if err != nil {
		return nil, err
	}
	photos, err := s.store.ListPhotosByReport(ctx, reportID)
	if err != nil {
		return nil, storeFailure(fmt.Errorf("list photos for report %s: %w", reportID, err))
	}
	return photos, nil
}

// ListLinks returns reportID's links in display order.
func (s *PhotoService) ListLinks(ctx context.Context, reportID string) ([]models.LinkRecord, error) {
	reportID, err := validateReportID(reportID)
	if err != nil {
		return nil, err
	}
	links, err := s.store.ListLinksByReport(ctx, reportID)
	if err != nil {
		return nil, storeFailure(fmt.Errorf("list links for report %s: %w", reportID, err))
	}
	return links, nil
}

// ListByOwner returns ownerID's photos, newest upload first.
func (s *PhotoService) ListByOwner(ctx context.Context, ownerID string) ([]models.PhotoRecord, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, unauthenticated()
	}
	photos, err := s.store.ListPhotosByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeFailure(fmt.Errorf("list photos for owner %s: %w", ownerID, err))
	}
	return photos, nil
}

// GetPhoto loads one photo owned by requesterID.
func (s *PhotoService) GetPhoto(ctx context.Context, requesterID, photoID string) (models.PhotoRecord, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return models.PhotoRecord{}, unauthenticated()
	}
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return models.PhotoRecord{}, err
	}
	if photo.OwnerID != requesterID {
		return models.PhotoRecord{}, forbidden(photo.ID)
	}
	return photo, nil
}

// ThumbnailURL derives the thumbnail address for photo. Non-positive sizes
// fall back to the configured defaults.
func (s *PhotoService) ThumbnailURL(photo models.PhotoRecord, width, height int) string {
	if width <= 0 {
		width = s.thumbWidth
	}
	if height <= 0 {
		height = s.thumbHeight
	}
	return provider.PhotoThumbnailURL(s.deliveryBase, photo, width, height)
}

// Delete removes photoID and every link to it. Only the owner may delete.
// The provider object is left in place.
func (s *PhotoService) Delete(ctx context.Context, requesterID, photoID string) error {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return unauthenticated()
	}
	photo, err := s.loadPhoto(ctx, photoID)
	if err != nil {
		return err
	}
	if photo.OwnerID != requesterID {
		s.metrics.recordDelete(deleteOutcomeForbidden)
		return forbidden(photo.ID)
	}
	if err := s.cascade(ctx, photo); err != nil {
		s.metrics.recordDelete(deleteOutcomeFailed)
		return err
	}
	s.metrics.recordDelete(deleteOutcomeDeleted)
	s.log().Info("photo deleted", "photo_id", photo.ID, "owner_id", requesterID)
	return nil
}

// DeleteAllForReport removes every photo linked to reportID without an
// ownership check. Failures are collected and the rest still run.
func (s *PhotoService) DeleteAllForReport(ctx context.Context, reportID string) (PurgeResult, error) {
	reportID, err := validateReportID(reportID)
	if err != nil {
		return PurgeResult{}, err
	}
	result := PurgeResult{ReportID: reportID, Deleted: []string{}, Failed: []PurgeFailure{}}

	photos, err := s.store.ListPhotosByReport(ctx, reportID)
	if err != nil {
		return result, storeFailure(fmt.Errorf("list photos for report %s: %w", reportID, err))
	}

	var errs []error
	for _, photo := range photos {
		if err := s.cascade(ctx, photo); err != nil {
			s.metrics.recordDelete(deleteOutcomeFailed)
			s.log().Warn("purge photo failed", "report_id", reportID, "photo_id", photo.ID, "error", err)
			result.Failed = append(result.Failed, PurgeFailure{PhotoID: photo.ID, Error: err.Error()})
			errs = append(errs, fmt.Errorf("delete photo %s: %w", photo.ID, err))
			continue
		}
		s.metrics.recordDelete(deleteOutcomeDeleted)
		result.Deleted = append(result.Deleted, photo.ID)
	}

	s.log().Info("report photos purged", "report_id", reportID, "deleted", len(result.Deleted), "failed", len(result.Failed))
	return result, errors.Join(errs...)
}

func (s *PhotoService) loadPhoto(ctx context.Context, photoID string) (models.PhotoRecord, error) {
	photoID = strings.TrimSpace(photoID)
	if photoID == "" {
		return models.PhotoRecord{}, badRequestCode(fmt.Errorf("photo_id is required"), ErrCodeMissingRequired)
	}
	photo, err := s.store.GetPhoto(ctx, photoID)
	if err != nil {
		return models.PhotoRecord{}, storeFailure(fmt.Errorf("get photo %s: %w", photoID, err))
	}
	if photo == nil {
		return models.PhotoRecord{}, photoNotFound(photoID)
	}
	return *photo, nil
}

// cascade deletes links before the photo row; a failure leaves the photo
// in place so the operation can be retried.
func (s *PhotoService) cascade(ctx context.Context, photo models.PhotoRecord) error {
	links, err := s.store.ListLinksByPhoto(ctx, photo.ID)
	if err != nil {
		return storeFailure(fmt.Errorf("list links for photo %s: %w", photo.ID, err))
	}
	for _, link := range links {
		if err := s.store.DeleteLink(ctx, link.ID); err != nil {
			return storeFailure(fmt.Errorf("delete link %s: %w", link.ID, err))
		}
	}
	if err := s.store.DeletePhoto(ctx, photo.ID); err != nil {
		return storeFailure(fmt.Errorf("delete photo %s: %w", photo.ID, err))
	}
	return nil
}
