package api

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
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	// uploadHTTPTimeout covers a full batch of per-file provider ceilings.
	uploadHTTPTimeout = 6 * time.Minute
	httpTimeoutEnvKey = "ROADLENS_HTTP_TIMEOUT"
	tokenEnvKey       = "ROADLENS_TOKEN"
	adminTokenEnvKey  = "ROADLENS_ADMIN_TOKEN"
)

// Client is a simple HTTP client for the roadlens API.
type Client struct {
	baseURL    string
	http       *http.Client
	upload     *http.Client
	authToken  string
	adminToken string
}

// UploadFile is one local file sent in a batch.
type UploadFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		upload:     &http.Client{Timeout: uploadHTTPTimeout},
		authToken:  strings.TrimSpace(os.Getenv(tokenEnvKey)),
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// WithToken overrides the bearer token taken from the environment.
func (c *Client) WithToken(token string) *Client {
	c.authToken = strings.TrimSpace(token)
	return c
}

// WithAdminToken overrides the admin token taken from the environment.
func (c *Client) WithAdminToken(token string) *Client {
	c.adminToken = strings.TrimSpace(token)
	return c
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Health returns the server health payload.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

// UploadReportPhotos sends files as one batch linked to reportID.
func (c *Client) UploadReportPhotos(ctx context.Context, reportID string, files []UploadFile, onProgress func(sent, total int64)) (BatchUploadResponse, error) {
	return c.uploadBatch(ctx, "/v1/reports/"+url.PathEscape(reportID)+"/photos", files, onProgress)
}

// UploadPhotos sends files as one batch not linked to any report.
func (c *Client) UploadPhotos(ctx context.Context, files []UploadFile, onProgress func(sent, total int64)) (BatchUploadResponse, error) {
	return c.uploadBatch(ctx, "/v1/photos", files, onProgress)
}

func (c *Client) ListReportPhotos(ctx context.Context, reportID string) ([]PhotoResponse, error) {
	var resp []PhotoResponse
	err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(reportID)+"/photos", nil, &resp)
	return resp, err
}

func (c *Client) ListReportLinks(ctx context.Context, reportID string) (ReportLinksResponse, error) {
	var resp ReportLinksResponse
	err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(reportID)+"/links", nil, &resp)
	return resp, err
}

func (c *Client) ListMyPhotos(ctx context.Context) ([]PhotoResponse, error) {
	var resp []PhotoResponse
	err := c.do(ctx, http.MethodGet, "/v1/me/photos", nil, &resp)
	return resp, err
}

func (c *Client) GetPhoto(ctx context.Context, photoID string) (PhotoResponse, error) {
	var resp PhotoResponse
	err := c.do(ctx, http.MethodGet, "/v1/photos/"+url.PathEscape(photoID), nil, &resp)
	return resp, err
}

func (c *Client) Thumbnail(ctx context.Context, photoID string, width, height int) (ThumbnailResponse, error) {
	var resp ThumbnailResponse
	query := url.Values{}
	if width > 0 {
		query.Set("w", strconv.Itoa(width))
	}
	if height > 0 {
		query.Set("h", strconv.Itoa(height))
	}
	err := c.do(ctx, http.MethodGet, "/v1/photos/"+url.PathEscape(photoID)+"/thumbnail", query, &resp)
	return resp, err
}

func (c *Client) DeletePhoto(ctx context.Context, photoID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/photos/"+url.PathEscape(photoID), nil, nil)
}

func (c *Client) ReportCapacity(ctx context.Context, reportID string, count int) (CapacityResponse, error) {
	var resp CapacityResponse
	query := url.Values{}
	query.Set("count", strconv.Itoa(count))
	err := c.do(ctx, http.MethodGet, "/v1/reports/"+url.PathEscape(reportID)+"/photos/capacity", query, &resp)
	return resp, err
}

// PurgeReportPhotos removes every photo of a report. It needs the admin token.
// A partial purge returns the response together with an error.
func (c *Client) PurgeReportPhotos(ctx context.Context, reportID string) (PurgeResponse, error) {
	var resp PurgeResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/reports/"+url.PathEscape(reportID)+"/photos", nil)
	if err != nil {
		return resp, err
	}
	c.setAuthHeader(req)
	c.setAdminHeader(req)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusMultiStatus {
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return resp, err
		}
		return resp, &APIError{
			Status:  httpResp.StatusCode,
			Code:    "partial_purge",
			Message: fmt.Sprintf("%d of %d photos could not be deleted", len(resp.Failed), len(resp.Failed)+len(resp.Deleted)),
		}
	}
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) uploadBatch(ctx context.Context, path string, files []UploadFile, onProgress func(sent, total int64)) (BatchUploadResponse, error) {
	var resp BatchUploadResponse
	payload, contentType, err := encodeBatch(files)
	if err != nil {
		return resp, err
	}

	var body io.Reader = bytes.NewReader(payload)
	if onProgress != nil {
		progress := &progressReader{r: body, total: int64(len(payload)), fn: onProgress}
		// The transport may keep reading the body after an early response.
		defer progress.stop()
		body = progress
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return resp, err
	}
	req.ContentLength = int64(len(payload))
	req.Header.Set("Content-Type", contentType)
	c.setAuthHeader(req)

	httpResp, err := c.upload.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func encodeBatch(files []UploadFile) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
		if file.ContentType != "" {
			header.Set("Content-Type", file.ContentType)
		} else {
			header.Set("Content-Type", "application/octet-stream")
		}
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if file.Body == nil {
			return nil, "", fmt.Errorf("file %q has no content", file.Name)
		}
		if _, err := io.Copy(part, file.Body); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// progressReader reports bytes read until stop is called. fn runs under mu
// so stop also waits for a callback in flight.
type progressReader struct {
	r       io.Reader
	total   int64
	fn      func(sent, total int64)
	mu      sync.Mutex
	sent    int64
	stopped bool
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		if !p.stopped {
			p.sent += int64(n)
			p.fn(p.sent, p.total)
		}
		p.mu.Unlock()
	}
	return n, err
}

func (p *progressReader) stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return err
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var batch BatchFailureResponse
	if err := json.Unmarshal(payload, &batch); err == nil && batch.Error != "" {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			Code:      batch.Code,
			ErrorCode: batch.ErrorCode,
			Message:   batch.Error,
		}
		if batch.FailedFile != "" {
			apiErr.Batch = &batch
		}
		return apiErr
	}
	return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("api error: %s", resp.Status)}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set("X-Admin-Token", c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
