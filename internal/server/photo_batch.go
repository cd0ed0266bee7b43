package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"roadlens/internal/models"
	"roadlens/internal/provider"
)

// FileProgressFunc reports transfer progress for the file at index.
type FileProgressFunc func(index int, name string, sent, total int64)

type batchState int

const (
	batchUploading batchState = iota
	batchSucceeded
	batchFailed
)

func (s batchState) String() string {
	switch s {
	case batchUploading:
		return "uploading"
	case batchSucceeded:
		return "succeeded"
	case batchFailed:
		return "failed"
	default:
		return fmt.Sprintf("batchState(%d)", int(s))
	}
}

// BatchUploadError reports where a batch stopped. Completed photos stay
// recorded; Pending lists the failed file followed by the ones never tried.
type BatchUploadError struct {
	ReportID    string
	FailedFile  string
	FailedIndex int
	Total       int
	Completed   []models.PhotoRecord
	Pending     []string
	Err         error
}

func (e *BatchUploadError) Error() string {
	return fmt.Sprintf("upload of %q failed after %d of %d files: %v", e.FailedFile, len(e.Completed), e.Total, e.Err)
}

func (e *BatchUploadError) Unwrap() error {
	return e.Err
}

// Status maps the underlying failure onto an HTTP status.
func (e *BatchUploadError) Status() int {
	switch provider.KindOf(e.Err) {
	case provider.KindTimeout:
		return http.StatusGatewayTimeout
	case provider.KindAborted:
		return statusClientClosedRequest
	case provider.KindNetwork, provider.KindRejected, provider.KindMalformed:
		return http.StatusBadGateway
	default:
		return httpStatusFromError(e.Err)
	}
}

// Code returns the string and numeric error codes for the failure.
func (e *BatchUploadError) Code() (string, int) {
	switch provider.KindOf(e.Err) {
	case provider.KindTimeout:
		return "upload_timeout", ErrCodeUploadTimeout
	case provider.KindNetwork:
		return "upload_network", ErrCodeUploadNetwork
	case provider.KindRejected:
		return "upload_rejected", ErrCodeUploadRejected
	case provider.KindMalformed:
		return "upload_malformed", ErrCodeUploadMalformed
	case provider.KindAborted:
		return "upload_aborted", ErrCodeUploadAborted
	default:
		return "upload_store_failed", ErrCodeUploadStoreFailed
	}
}

// statusClientClosedRequest is the non-standard status used when the caller
// went away mid-batch.
const statusClientClosedRequest = 499

// batchRun walks a batch one file at a time: uploading until every file is
// recorded (succeeded) or one step fails (failed). Each step moves exactly
// one file from pending to completed or stops the run.
type batchRun struct {
	svc        *PhotoService
	ownerID    string
	reportID   string
	startCount int
	total      int
	onProgress FileProgressFunc

	pending   []provider.File
	completed []models.PhotoRecord
	failure   *BatchUploadError
}

func newBatchRun(svc *PhotoService, ownerID, reportID string, startCount int, files []provider.File, onProgress FileProgressFunc) *batchRun {
	pending := make([]provider.File, len(files))
	copy(pending, files)
	return &batchRun{
		svc:        svc,
		ownerID:    ownerID,
		reportID:   reportID,
		startCount: startCount,
		total:      len(files),
		onProgress: onProgress,
		pending:    pending,
		completed:  make([]models.PhotoRecord, 0, len(files)),
	}
}

func (b *batchRun) state() batchState {
	switch {
	case b.failure != nil:
		return batchFailed
	case len(b.pending) == 0:
		return batchSucceeded
	default:
		return batchUploading
	}
}

// step uploads and records the next pending file.
func (b *batchRun) step(ctx context.Context) {
	if b.state() != batchUploading {
		return
	}
	index := len(b.completed)
	file := b.pending[0]

	if err := ctx.Err(); err != nil {
		b.fail(index, file, &provider.UploadError{Kind: provider.KindAborted, Message: "batch cancelled", Err: err})
		return
	}

	stored, err := b.svc.uploader.Upload(ctx, file, provider.UploadOptions{
		Folder:     provider.ReportFolder(b.reportID),
		OnProgress: b.progressFor(index, file.Name),
	})
	if err != nil {
		if !errors.As(err, new(*provider.UploadError)) {
			err = &provider.UploadError{Kind: provider.KindNetwork, Err: err}
		}
		b.fail(index, file, err)
		return
	}

	photo, err := b.svc.recordPhoto(ctx, b.ownerID, b.reportID, file, stored, b.startCount+index)
	if err != nil {
		b.fail(index, file, err)
		return
	}

	b.completed = append(b.completed, photo)
	b.pending = b.pending[1:]
	b.svc.log().Debug("photo recorded", "report_id", b.reportID, "photo_id", photo.ID, "file", file.Name, "index", index)
}

func (b *batchRun) fail(index int, file provider.File, err error) {
	pending := make([]string, 0, len(b.pending))
	for _, f := range b.pending {
		pending = append(pending, f.Name)
	}
	b.failure = &BatchUploadError{
		ReportID:    b.reportID,
		FailedFile:  file.Name,
		FailedIndex: index,
		Total:       b.total,
		Completed:   b.completedRecords(),
		Pending:     pending,
		Err:         err,
	}
}

func (b *batchRun) completedRecords() []models.PhotoRecord {
	out := make([]models.PhotoRecord, len(b.completed))
	copy(out, b.completed)
	return out
}

func (b *batchRun) progressFor(index int, name string) provider.ProgressFunc {
	if b.onProgress == nil {
		return nil
	}
	return func(sent, total int64) {
		b.onProgress(index, name, sent, total)
	}
}
