package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emilythestrangee/ai-forum/backend/internal/config"
)

const (
	MaxFileSize    = 5 * 1024 * 1024 // 5 MB
	PlaceholderURL = "https://ui-avatars.com/api/?name=Avatar&background=6366f1&color=ffffff&size=400"
)

var ErrInvalidFile = errors.New("invalid file")

// ObjectPutter is the slice of the S3 client used here.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	client ObjectPutter
	bucket string
	region string
	logger *zap.Logger
}

func NewUploader(client ObjectPutter, bucket, region string, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{client: client, bucket: bucket, region: region, logger: logger}
}

// FromConfig builds an S3 backed uploader, or one that only hands out the
// placeholder when AWS settings are incomplete.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Uploader, error) {
	if !cfg.UploadsEnabled() {
		logger.Warn("S3 uploads disabled, avatars fall back to placeholder")
		return NewUploader(nil, "", "", logger), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewUploader(s3.NewFromConfig(awsCfg), cfg.AWSBucket, cfg.AWSRegion, logger), nil
}

// Image validates r as an image of at most MaxFileSize bytes and stores it
// under folder. Storage failures are logged and answered with PlaceholderURL.
func (u *Uploader) Image(ctx context.Context, folder string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file content: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	if len(data) > MaxFileSize {
		return "", fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidFile, MaxFileSize)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: only image files are allowed, got %s", ErrInvalidFile, mt.String())
	}

	if u.client == nil {
		return PlaceholderURL, nil
	}

	key := fmt.Sprintf("%s/avatar_%s%s", strings.Trim(folder, "/"), uuid.NewString(), mt.Extension())
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mt.String()),
	})
	if err != nil {
		u.logger.Warn("upload failed, using placeholder", zap.String("key", key), zap.Error(err))
		return PlaceholderURL, nil
	}

	url := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	u.logger.Info("file uploaded", zap.String("url", url))
	return url, nil
}
