// Package storage uploads rendered artifacts to S3-compatible object storage
// (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"hydrakit/internal/model"
)

// Uploader stores a blob and reports where it can be fetched from.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (model.Artifact, error)
}

type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

// putObjectAPI is the part of *s3.Client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Uploader struct {
	client  putObjectAPI
	bucket  string
	baseURL string
}

// NewS3Uploader builds a client from cfg. An empty Endpoint talks to AWS;
// otherwise path-style addressing against Endpoint is used. Empty keys fall
// back to the default credential chain.
func NewS3Uploader(ctx context.Context, cfg Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderWith(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

// NewS3UploaderWith wraps an existing client; used by tests.
func NewS3UploaderWith(client putObjectAPI, bucket, publicBaseURL string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (u *S3Uploader) Upload(ctx context.Context, key, contentType string, body []byte) (model.Artifact, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return model.Artifact{}, fmt.Errorf("put %s/%s: %w", u.bucket, key, err)
	}
	return model.Artifact{
		Key:         key,
		URL:         u.URL(key),
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

// URL is the public address of key. Without a public base URL it falls
// back to an s3:// reference.
func (u *S3Uploader) URL(key string) string {
	if u.baseURL == "" {
		return fmt.Sprintf("s3://%s/%s", u.bucket, key)
	}
	return u.baseURL + "/" + key
}

// SummaryKey is the object key of a rendered order summary.
func SummaryKey(line model.ProductLine, sessionID, cartID string) string {
	return fmt.Sprintf("summaries/%s/%s/%s.pdf", line, sessionID, cartID)
}
