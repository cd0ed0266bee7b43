package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeRequestTooLarge = 1002
	ErrCodeInvalidQuery    = 1003
	ErrCodeInvalidID       = 1004
	ErrCodeMissingRequired = 1009
	ErrCodeBatchTooLarge   = 1101

	// Domain state (2xxx)
	ErrCodePhotoNotFound = 2001
	ErrCodeQuotaExceeded = 2101

	// Auth & limits (3xxx)
	ErrCodeUnauthorized      = 3001
	ErrCodeForbidden         = 3002
	ErrCodeResourceExhausted = 3003

	// Upstream/internal (4xxx)
	ErrCodeInternal          = 4001
	ErrCodeStoreFailure      = 4002
	ErrCodeUploadTimeout     = 4101
	ErrCodeUploadNetwork     = 4102
	ErrCodeUploadRejected    = 4103
	ErrCodeUploadMalformed   = 4104
	ErrCodeUploadAborted     = 4105
	ErrCodeUploadStoreFailed = 4106
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 401:
		return ErrCodeUnauthorized
	case 403:
		return ErrCodeForbidden
	case 404:
		return ErrCodePhotoNotFound
	case 409:
		return ErrCodeQuotaExceeded
	case 429:
		return ErrCodeResourceExhausted
	case 500:
		return ErrCodeInternal
	default:
		return 0
	}
}
