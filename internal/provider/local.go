package provider

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"roadlens/internal/blobstore"
	"roadlens/internal/models"
)

// LocalConfig configures the filesystem-backed development provider.
type LocalConfig struct {
	// MediaBaseURL is where the server exposes stored objects, e.g. http://127.0.0.1:7433/media.
	MediaBaseURL string
	Timeout      time.Duration
}

// LocalUploader stores photos in a local ObjectStore and serves them back
// through the server's media route.
type LocalUploader struct {
	objects blobstore.ObjectStore
	cfg     LocalConfig
	now     func() time.Time
}

var _ Uploader = (*LocalUploader)(nil)

// NewLocalUploader builds an uploader writing to objects.
func NewLocalUploader(objects blobstore.ObjectStore, cfg LocalConfig) (*LocalUploader, error) {
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	cfg.MediaBaseURL = strings.TrimRight(strings.TrimSpace(cfg.MediaBaseURL), "/")
	if cfg.MediaBaseURL == "" {
		return nil, fmt.Errorf("media base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &LocalUploader{objects: objects, cfg: cfg, now: time.Now}, nil
}

// Upload validates the payload is a decodable image and stores it.
func (u *LocalUploader) Upload(ctx context.Context, file File, opts UploadOptions) (models.StoredImage, error) {
	var zero models.StoredImage
	data, err := readPayload(file)
	if err != nil {
		return zero, err
	}

	callCtx, cancel := startTransfer(ctx, u.cfg.Timeout)
	defer cancel()

	tracker := newProgressTracker(opts.OnProgress, int64(len(data)))
	defer tracker.stop()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return zero, rejected(http.StatusBadRequest, "unsupported image format")
	}

	res, err := u.objects.Put(callCtx, SanitizeFolder(opts.Folder), fileExt(file.Name), tracker.reader(bytes.NewReader(data)))
	if err != nil {
		return zero, classifyTransfer(ctx, callCtx, u.cfg.Timeout, err)
	}

	url := u.cfg.MediaBaseURL + "/" + res.Key
	return models.StoredImage{
		ObjectID:         res.Key,
		URL:              url,
		SecureURL:        url,
		Format:           format,
		Width:            cfg.Width,
		Height:           cfg.Height,
		Bytes:            res.SizeBytes,
		OriginalFilename: baseName(file.Name),
		CreatedAt:        u.now().UTC(),
	}, nil
}
