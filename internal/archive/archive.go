package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/rpereza/hydro-back-sub001/config"
)

// ContentTypeXLSX is the MIME type of archived workbooks
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Uploader stores a generated report and returns its location
type Uploader interface {
	ReportKey(at time.Time) string
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// S3Archive uploads reports to a single S3 (or S3-compatible) bucket
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
	newID  func() string
}

// NewS3Archive creates an archive from configuration. Static credentials are
// used when configured, otherwise the default AWS credential chain applies.
func NewS3Archive(ctx context.Context, cfg config.ArchiveConfig, optFns ...func(*s3.Options)) (*S3Archive, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("archive: bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	opts := []func(*s3.Options){func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
	}}
	client := s3.NewFromConfig(awsCfg, append(opts, optFns...)...)

	return &S3Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		newID:  func() string { return uuid.NewString() },
	}, nil
}

// Bucket returns the target bucket name
func (a *S3Archive) Bucket() string {
	return a.bucket
}

// ReportKey returns <prefix>/<yyyy>/<mm>/<uuid>.xlsx for the given time
func (a *S3Archive) ReportKey(at time.Time) string {
	at = at.UTC()
	name := a.newID() + ".xlsx"
	return path.Join(a.prefix, fmt.Sprintf("%04d", at.Year()), fmt.Sprintf("%02d", int(at.Month())), name)
}

// Upload writes body under key and returns its s3:// URI
func (a *S3Archive) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := a.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("archive: put %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
