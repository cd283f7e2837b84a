package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/scrivano/precis/safeid"
)

// S3Config configures the S3-compatible uploader.
type S3Config struct {
	Bucket string
	Region string

	// Endpoint overrides the AWS endpoint for S3-compatible stores
	// (MinIO, R2). Leave empty for AWS.
	Endpoint string

	// AccessKey and SecretKey set static credentials. Leave empty to use
	// the SDK's default credential chain.
	AccessKey string
	SecretKey string

	// ForcePathStyle addresses the bucket in the path instead of the
	// hostname; most S3-compatible stores need this.
	ForcePathStyle bool

	// PublicBaseURL is the URL prefix the backend fetches objects from.
	// Defaults to the virtual-hosted AWS URL for the bucket.
	PublicBaseURL string

	Logger *slog.Logger
}

// S3Uploader stores artifacts in an S3-compatible bucket.
type S3Uploader struct {
	svc    *s3.S3
	bucket string
	public string
	logger *slog.Logger
}

// NewS3 creates the S3 uploader.
func NewS3(cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("objectstore: s3 bucket required")
	}
	if cfg.Region == "" {
		return nil, errors.New("objectstore: s3 region required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.ForcePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("objectstore: aws session: %w", err)
	}

	public := cfg.PublicBaseURL
	if public == "" {
		public = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3Uploader{
		svc:    s3.New(sess),
		bucket: cfg.Bucket,
		public: strings.TrimRight(public, "/"),
		logger: cfg.Logger,
	}, nil
}

// Put stores data under name and returns the public object URL.
func (u *S3Uploader) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := safeid.ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("objectstore: object name: %w", err)
	}

	_, err := u.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("objectstore: s3 put %s: %w", name, err)
	}

	url := u.public + "/" + name
	u.logger.Debug("objectstore: stored", "name", name, "bytes", len(data), "url", url)
	return url, nil
}
