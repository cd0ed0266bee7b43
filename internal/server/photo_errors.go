package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"roadlens/internal/models"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrBatchTooLarge   = errors.New("batch too large")
	ErrQuotaExceeded   = errors.New("photo quota exceeded")
	ErrNotFound        = errors.New("photo not found")
	ErrForbidden       = errors.New("photo belongs to another user")
)

func unauthenticated() error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, ErrUnauthenticated)
}

func batchTooLarge(count int) error {
	return makeAPIError(http.StatusBadRequest, "batch_too_large", ErrCodeBatchTooLarge,
		fmt.Errorf("%w: %d files submitted, at most %d per batch", ErrBatchTooLarge, count, models.MaxPhotosPerReport))
}

func quotaExceeded(reportID string, current, requested int) error {
	return makeAPIError(http.StatusConflict, "quota_exceeded", ErrCodeQuotaExceeded,
		fmt.Errorf("%w: report %s already has %d photos; cannot add %d more (maximum %d)",
			ErrQuotaExceeded, reportID, current, requested, models.MaxPhotosPerReport))
}

func photoNotFound(photoID string) error {
	return makeAPIError(http.StatusNotFound, "not_found", ErrCodePhotoNotFound, fmt.Errorf("%w: %s", ErrNotFound, photoID))
}

func forbidden(photoID string) error {
	return makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden, fmt.Errorf("%w: %s", ErrForbidden, photoID))
}

var reportIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

func validateReportID(reportID string) (string, error) {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return "", badRequestCode(fmt.Errorf("report_id is required"), ErrCodeMissingRequired)
	}
	if !reportIDPattern.MatchString(reportID) {
		return "", badRequestCode(fmt.Errorf("invalid report_id"), ErrCodeInvalidID)
	}
	return reportID, nil
}
