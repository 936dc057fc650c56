package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"storefront-service/internal/entity"
)

const serviceName = "object storage"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage keeps uploaded files in one bucket and hands out their public
// virtual-hosted URLs.
type S3Storage struct {
	client  s3API
	bucket  string
	baseURL string
}

func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}

func NewS3Storage(client *s3.Client, bucket, region string) *S3Storage {
	return newS3Storage(client, bucket, region)
}

func newS3Storage(client s3API, bucket, region string) *S3Storage {
	return &S3Storage{
		client:  client,
		bucket:  bucket,
		baseURL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", bucket, region),
	}
}

func (s *S3Storage) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", entity.NewUpstreamError(serviceName, err)
	}
	return s.baseURL + key, nil
}

// Delete removes the object behind a URL previously returned by Upload.
func (s *S3Storage) Delete(ctx context.Context, fileURL string) error {
	key, err := s.keyOf(fileURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return entity.NewUpstreamError(serviceName, err)
}

func (s *S3Storage) keyOf(fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, s.baseURL) {
		return "", fmt.Errorf("url %q is not in bucket %s: %w", fileURL, s.bucket, entity.ErrInvalidInput)
	}
	key, err := url.PathUnescape(strings.TrimPrefix(fileURL, s.baseURL))
	if err != nil || key == "" {
		return "", fmt.Errorf("url %q has no object key: %w", fileURL, entity.ErrInvalidInput)
	}
	return key, nil
}
