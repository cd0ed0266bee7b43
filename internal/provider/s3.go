package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"

	"roadlens/internal/models"
)

// S3API is the subset of the S3 client the uploader needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3ClientConfig describes how to reach an S3-compatible endpoint.
type S3ClientConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds an S3 client. A custom endpoint switches to path-style
// addressing for MinIO-like services.
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Config configures the S3 uploader.
type S3Config struct {
	Bucket string
	// PublicBaseURL is the public prefix objects are reachable under.
	PublicBaseURL string
	Timeout       time.Duration
}

// S3Uploader stores photos in an S3 bucket under random keys.
type S3Uploader struct {
	client S3API
	cfg    S3Config
	now    func() time.Time
}

var _ Uploader = (*S3Uploader)(nil)

// NewS3Uploader validates cfg and builds an uploader.
func NewS3Uploader(client S3API, cfg S3Config) (*S3Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3 public base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &S3Uploader{client: client, cfg: cfg, now: time.Now}, nil
}

// Upload puts one object. Progress follows the furthest byte the SDK has read.
func (u *S3Uploader) Upload(ctx context.Context, file File, opts UploadOptions) (models.StoredImage, error) {
	var zero models.StoredImage
	data, err := readPayload(file)
	if err != nil {
		return zero, err
	}
	imgCfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return zero, rejected(http.StatusBadRequest, "unsupported image format")
	}

	key := objectKey(opts.Folder, fileExt(file.Name))
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = "image/" + format
	}

	callCtx, cancel := startTransfer(ctx, u.cfg.Timeout)
	defer cancel()

	tracker := newProgressTracker(opts.OnProgress, int64(len(data)))
	defer tracker.stop()

	_, err = u.client.PutObject(callCtx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          &seekProgress{r: bytes.NewReader(data), tracker: tracker},
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return zero, classifyS3(ctx, callCtx, u.cfg.Timeout, err)
	}

	url := u.cfg.PublicBaseURL + "/" + key
	stored := models.StoredImage{
		ObjectID:         key,
		URL:              url,
		Format:           format,
		Width:            imgCfg.Width,
		Height:           imgCfg.Height,
		Bytes:            int64(len(data)),
		OriginalFilename: baseName(file.Name),
		CreatedAt:        u.now().UTC(),
	}
	if strings.HasPrefix(url, "https://") {
		stored.SecureURL = url
	}
	return stored, nil
}

func objectKey(folder, ext string) string {
	name := uuid.NewString() + ext
	if folder = SanitizeFolder(folder); folder != "" {
		return folder + "/" + name
	}
	return name
}

func classifyS3(parent, call context.Context, timeout time.Duration, err error) *UploadError {
	if parent.Err() == nil && call.Err() == nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			status := 0
			var respErr *smithyhttp.ResponseError
			if errors.As(err, &respErr) {
				status = respErr.HTTPStatusCode()
			}
			message := strings.TrimSpace(apiErr.ErrorMessage())
			if message == "" {
				message = apiErr.ErrorCode()
			}
			uploadErr := rejected(status, message)
			uploadErr.Err = err
			return uploadErr
		}
	}
	return classifyTransfer(parent, call, timeout, err)
}

// seekProgress reports the high-water mark of bytes read so SDK rewinds for
// signing or retries never move progress backwards.
type seekProgress struct {
	r       *bytes.Reader
	tracker *progressTracker
	high    int64
}

func (s *seekProgress) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if pos := s.r.Size() - int64(s.r.Len()); pos > s.high {
		s.tracker.add(int(pos - s.high))
		s.high = pos
	}
	return n, err
}

func (s *seekProgress) Seek(offset int64, whence int) (int64, error) {
	return s.r.Seek(offset, whence)
}

var _ io.ReadSeeker = (*seekProgress)(nil)
