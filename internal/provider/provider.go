package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"

	"roadlens/internal/models"
)

// DefaultTimeout bounds one file transfer.
const DefaultTimeout = 60 * time.Second

// ProgressFunc receives transfer progress. It is never called after Upload returns.
type ProgressFunc func(sent, total int64)

// File is one payload handed to an Uploader.
type File struct {
	Name        string
	ContentType string
	// Size is the payload length when known; non-positive means unknown.
	Size int64
	Body io.Reader
}

// UploadOptions tunes one Upload call.
type UploadOptions struct {
	// Folder is a destination hint. Backends with a fixed destination policy ignore it.
	Folder     string
	OnProgress ProgressFunc
}

// Uploader performs single-file uploads to an object-storage provider.
//
// There is deliberately no Delete: removing provider objects needs privileged
// credentials that live outside this service.
type Uploader interface {
	Upload(ctx context.Context, file File, opts UploadOptions) (models.StoredImage, error)
}

var folderUnsafe = regexp.MustCompile(`[<>:"/\\|?*\s]`)

// SanitizeFolder replaces characters providers reject in folder names.
func SanitizeFolder(folder string) string {
	folder = strings.TrimSpace(folder)
	if folder == "" {
		return ""
	}
	segments := strings.Split(strings.Trim(folder, "/"), "/")
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = folderUnsafe.ReplaceAllString(strings.TrimSpace(segment), "_")
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		out = append(out, segment)
	}
	return strings.Join(out, "/")
}

// ReportFolder is the conventional destination hint for a report's evidence.
func ReportFolder(reportID string) string {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return "evidence/unlinked"
	}
	return "evidence/" + SanitizeFolder(strings.ReplaceAll(reportID, "/", "_"))
}

func fileExt(name string) string {
	return strings.ToLower(path.Ext(strings.TrimSpace(name)))
}

func baseName(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(path.Base(strings.ReplaceAll(name, "\\", "/")), path.Ext(name))
}

// readPayload buffers the file body for backends that need the full payload
// before sending.
func readPayload(file File) ([]byte, error) {
	if file.Body == nil {
		return nil, fmt.Errorf("file body is required")
	}
	var buf bytes.Buffer
	if file.Size > 0 {
		buf.Grow(int(file.Size))
	}
	if _, err := io.Copy(&buf, file.Body); err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	return buf.Bytes(), nil
}
