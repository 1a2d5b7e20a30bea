package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ObjectStorage implements Storage for S3 and S3-compatible services (Cloudflare R2)
type ObjectStorage struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucket     string
	baseURL    string
	publicRead bool
}

// NewS3Storage creates storage on AWS S3
func NewS3Storage(cfg Config) (*ObjectStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for S3")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsConfig := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return newObjectStorage(awsConfig, cfg, baseURL)
}

// NewCloudflareR2Storage creates a new Cloudflare R2 storage instance.
// R2 is S3-compatible, so we use the same SDK
func NewCloudflareR2Storage(cfg Config) (*ObjectStorage, error) {
	// R2 endpoint format: https://<account_id>.r2.cloudflarestorage.com
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required for Cloudflare R2")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for Cloudflare R2")
	}

	awsConfig := &aws.Config{
		Region:           aws.String("auto"),
		Endpoint:         aws.String(cfg.Endpoint),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.r2.dev", cfg.Bucket)
	}
	return newObjectStorage(awsConfig, cfg, baseURL)
}

func newObjectStorage(awsConfig *aws.Config, cfg Config, baseURL string) (*ObjectStorage, error) {
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage session: %w", err)
	}

	return &ObjectStorage{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucket:     cfg.Bucket,
		baseURL:    baseURL,
		publicRead: cfg.PublicRead,
	}, nil
}

// Save uploads a file to the bucket
func (s *ObjectStorage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	key, err := cleanKey(path)
	if err != nil {
		return err
	}

	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		input.ACL = aws.String(s3.ObjectCannedACLPublicRead)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

// Get retrieves a file from the bucket
func (s *ObjectStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	key, err := cleanKey(path)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return result.Body, nil
}

// Delete removes a file from the bucket
func (s *ObjectStorage) Delete(ctx context.Context, path string) error {
	key, err := cleanKey(path)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists checks if a file exists in the bucket
func (s *ObjectStorage) Exists(ctx context.Context, path string) (bool, error) {
	key, err := cleanKey(path)
	if err != nil {
		return false, err
	}

	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.RequestFailure
		if errors.As(err, &aerr) && aerr.StatusCode() == 404 {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

// GetURL returns a public URL for the file
func (s *ObjectStorage) GetURL(ctx context.Context, path string) (string, error) {
	key, err := cleanKey(path)
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL, key), nil
}
