package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"roadlens/internal/models"
)

const (
	maxHostedResponseBytes = 1 << 20
	fallbackContentType    = "application/octet-stream"
)

// HostedConfig configures the hosted image-provider uploader.
type HostedConfig struct {
	// UploadURL is the provider's unsigned upload endpoint.
	UploadURL string
	// UploadPreset is the upload-profile token sent with every file.
	UploadPreset string
	// PresetFixesFolder means the preset already pins a destination, so the
	// folder hint is not sent.
	PresetFixesFolder bool
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// HostedUploader posts multipart uploads to an image-hosting provider.
type HostedUploader struct {
	cfg    HostedConfig
	client *http.Client
}

var _ Uploader = (*HostedUploader)(nil)

// NewHostedUploader validates cfg and builds an uploader.
func NewHostedUploader(cfg HostedConfig) (*HostedUploader, error) {
	cfg.UploadURL = strings.TrimSpace(cfg.UploadURL)
	cfg.UploadPreset = strings.TrimSpace(cfg.UploadPreset)
	if cfg.UploadURL == "" {
		return nil, fmt.Errorf("provider upload url is required")
	}
	parsed, err := url.Parse(cfg.UploadURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid provider upload url %q", cfg.UploadURL)
	}
	if cfg.UploadPreset == "" {
		return nil, fmt.Errorf("provider upload preset is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HostedUploader{cfg: cfg, client: client}, nil
}

type hostedImage struct {
	PublicID         string `json:"public_id"`
	URL              string `json:"url"`
	SecureURL        string `json:"secure_url"`
	Format           string `json:"format"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	Bytes            int64  `json:"bytes"`
	OriginalFilename string `json:"original_filename"`
	CreatedAt        string `json:"created_at"`
}

type hostedError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends one file. Progress counts bytes of the encoded request body.
func (u *HostedUploader) Upload(ctx context.Context, file File, opts UploadOptions) (models.StoredImage, error) {
	var zero models.StoredImage
	if file.Body == nil {
		return zero, fmt.Errorf("file body is required")
	}

	body, contentType, err := u.encode(file, opts.Folder)
	if err != nil {
		return zero, err
	}

	callCtx, cancel := startTransfer(ctx, u.cfg.Timeout)
	defer cancel()

	tracker := newProgressTracker(opts.OnProgress, int64(len(body)))
	defer tracker.stop()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, u.cfg.UploadURL, tracker.reader(bytes.NewReader(body)))
	if err != nil {
		return zero, fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = int64(len(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return zero, classifyTransfer(ctx, callCtx, u.cfg.Timeout, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxHostedResponseBytes))
	if err != nil {
		return zero, classifyTransfer(ctx, callCtx, u.cfg.Timeout, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, rejected(resp.StatusCode, parseHostedError(payload))
	}
	return parseHostedImage(payload)
}

func (u *HostedUploader) encode(file File, folder string) ([]byte, string, error) {
	var buf bytes.Buffer
	if file.Size > 0 {
		buf.Grow(int(file.Size) + 1024)
	}
	mw := multipart.NewWriter(&buf)

	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = fallbackContentType
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
	}

	if err := mw.WriteField("upload_preset", u.cfg.UploadPreset); err != nil {
		return nil, "", err
	}
	if folder = SanitizeFolder(folder); folder != "" && !u.cfg.PresetFixesFolder {
		if err := mw.WriteField("folder", folder); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

func parseHostedError(payload []byte) string {
	var parsed hostedError
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return ""
	}
	return strings.TrimSpace(parsed.Error.Message)
}

func parseHostedImage(payload []byte) (models.StoredImage, error) {
	var zero models.StoredImage
	var parsed hostedImage
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return zero, &UploadError{Kind: KindMalformed, Message: "response is not valid JSON", Err: err}
	}
	if strings.TrimSpace(parsed.PublicID) == "" {
		return zero, malformed("response has no public_id")
	}
	if parsed.URL == "" && parsed.SecureURL == "" {
		return zero, malformed("response has no url")
	}

	createdAt := time.Now().UTC()
	if parsed.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339, parsed.CreatedAt)
		if err != nil {
			return zero, &UploadError{Kind: KindMalformed, Message: "invalid created_at", Err: err}
		}
		createdAt = ts.UTC()
	}

	return models.StoredImage{
		ObjectID:         parsed.PublicID,
		URL:              parsed.URL,
		SecureURL:        parsed.SecureURL,
		Format:           parsed.Format,
		Width:            parsed.Width,
		Height:           parsed.Height,
		Bytes:            parsed.Bytes,
		OriginalFilename: parsed.OriginalFilename,
		CreatedAt:        createdAt,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
