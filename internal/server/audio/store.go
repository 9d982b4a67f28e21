// Package audio keeps voice-note recordings in S3-compatible object storage.
package audio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/saythanks/saythanks/internal/common"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Store saves recordings and hands out time-limited links to them.
type Store interface {
	Upload(ctx context.Context, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string) (string, error)
}

// Options configures an S3Store.
type Options struct {
	Region      string
	AccessKey   string
	SecretKey   string
	Bucket      string
	Endpoint    string
	URLValidity time.Duration
}

// S3Store is a Store backed by an S3 bucket.
type S3Store struct {
	opts    Options
	client  *s3.Client
	presign *s3.PresignClient
}

// NewS3Store loads the AWS configuration and builds the clients. Path-style
// addressing is used so MinIO endpoints work without DNS tricks.
func NewS3Store(ctx context.Context, opts Options) (*S3Store, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", common.ErrAudioStore, err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
	})

	if opts.URLValidity <= 0 {
		opts.URLValidity = 15 * time.Minute
	}

	return &S3Store{opts: opts, client: client, presign: newS3PresignClient(client)}, nil
}

// NewStorageKey returns a fresh object key partitioned by upload date.
func NewStorageKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("notes/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Upload writes r under a fresh key and returns that key.
func (s *S3Store) Upload(ctx context.Context, r io.Reader, contentType string) (string, error) {
	bucket := s.opts.Bucket
	key := NewStorageKey()

	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := putObject(s.client, ctx, in); err != nil {
		return "", fmt.Errorf("%w: put %s: %v", common.ErrAudioStore, key, err)
	}
	return key, nil
}

// PresignedURL returns a GET link for key valid for Options.URLValidity.
func (s *S3Store) PresignedURL(ctx context.Context, key string) (string, error) {
	bucket := s.opts.Bucket

	req, err := presignGetObject(s.presign, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.opts.URLValidity))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", common.ErrAudioStore, key, err)
	}

	return req.URL, nil
}
