package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failed upload.
type Kind string

const (
	KindTimeout   Kind = "timeout"
	KindNetwork   Kind = "network_error"
	KindRejected  Kind = "provider_rejected"
	KindMalformed Kind = "malformed_response"
	KindAborted   Kind = "aborted"
)

var (
	ErrTimeout           = errors.New("upload timed out")
	ErrNetwork           = errors.New("network error")
	ErrProviderRejected  = errors.New("provider rejected upload")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrAborted           = errors.New("upload aborted")
)

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindNetwork:
		return ErrNetwork
	case KindRejected:
		return ErrProviderRejected
	case KindMalformed:
		return ErrMalformedResponse
	case KindAborted:
		return ErrAborted
	default:
		return nil
	}
}

// UploadError is the typed failure returned by every Uploader.
type UploadError struct {
	Kind Kind
	// StatusCode is set for provider rejections.
	StatusCode int
	// Message is human readable and safe to show to end users.
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	prefix := "upload failed"
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		prefix = sentinel.Error()
	}
	switch {
	case e.Message != "":
		return prefix + ": " + e.Message
	case e.Err != nil:
		return prefix + ": " + e.Err.Error()
	default:
		return prefix
	}
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinel. A timeout is also an abort.
func (e *UploadError) Is(target error) bool {
	if target == nil {
		return false
	}
	if target == e.Kind.sentinel() {
		return true
	}
	return e.Kind == KindTimeout && target == ErrAborted
}

// KindOf extracts the failure kind, or "" when err is not an UploadError.
func KindOf(err error) Kind {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr.Kind
	}
	return ""
}

func rejected(status int, message string) *UploadError {
	if message == "" {
		message = fmt.Sprintf("upload failed with status %d", status)
	}
	return &UploadError{Kind: KindRejected, StatusCode: status, Message: message}
}

func malformed(format string, args ...any) *UploadError {
	return &UploadError{Kind: KindMalformed, Message: fmt.Sprintf(format, args...)}
}

// errUploadDeadline is the cancellation cause installed by startTransfer.
var errUploadDeadline = errors.New("per-file upload deadline exceeded")

// startTransfer derives the per-call context carrying the upload ceiling.
func startTransfer(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeoutCause(parent, timeout, errUploadDeadline)
}

// classifyTransfer maps an error raised while the transfer was in flight.
// parent is the caller's context, call the one returned by startTransfer.
func classifyTransfer(parent, call context.Context, timeout time.Duration, err error) *UploadError {
	var uploadErr *UploadError
	if errors.As(err, &uploadErr) {
		return uploadErr
	}
	if parent.Err() != nil {
		return &UploadError{Kind: KindAborted, Message: "cancelled by caller", Err: err}
	}
	if errors.Is(context.Cause(call), errUploadDeadline) {
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		return &UploadError{Kind: KindTimeout, Message: fmt.Sprintf("no response within %s", timeout), Err: err}
	}
	return &UploadError{Kind: KindNetwork, Err: err}
}
