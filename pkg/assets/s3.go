// Package assets serves media files through time-limited presigned URLs.
// The engine holds the object-store credentials; callers only ever receive
// scoped URLs, gated by the visibility policy.
package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const defaultURLExpiry = 15 * time.Minute

// S3Config configures the object-store client. Endpoint is only set for
// S3-compatible stores (MinIO); empty means AWS.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Client signs object URLs against one bucket.
type S3Client struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     S3Config
}

// NewS3Client creates an object-store client. Credentials fall back to the
// default AWS chain when not set explicitly.
func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Path-style addressing is required by MinIO and most
			// S3-compatible stores.
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &S3Client{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
	}, nil
}

func (c *S3Client) fullKey(key string) string {
	if c.cfg.Prefix == "" {
		return key
	}
	return strings.TrimSuffix(c.cfg.Prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}

// PresignDownload returns a time-limited GET URL for the object.
func (c *S3Client) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.fullKey(key)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignUpload returns a time-limited PUT URL for the object.
func (c *S3Client) PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}

	req, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.fullKey(key)),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}
	return req.URL, nil
}

// DeleteObject removes the object backing a deleted media row.
func (c *S3Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(c.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
