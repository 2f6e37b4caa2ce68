// Package s3 stores uploaded documents in an S3-compatible bucket.
package s3

import (
	"context"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/vitaltrack/healthd/internal/app/blob"
)

// Config selects the target bucket. BaseURL is the public prefix objects are
// served from; when empty a path-style URL against the endpoint is used.
type Config struct {
	Bucket    string
	KeyPrefix string
	BaseURL   string
}

// Store implements blob.Store on top of an S3 bucket.
type Store struct {
	client *awss3.Client
	cfg    Config
}

var _ blob.Store = (*Store)(nil)

// New loads AWS configuration from the environment and returns a bucket-backed
// store. Path-style addressing keeps MinIO and localstack working.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := awss3.New(awss3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: awsCfg.BaseEndpoint,
		UsePathStyle: true,
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient wires an already-configured client, which keeps the
// constructor testable.
func NewWithClient(client *awss3.Client, cfg Config) *Store {
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("s3://%s", cfg.Bucket)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Store{client: client, cfg: cfg}
}

func (s *Store) Put(ctx context.Context, fileName, contentType string, body io.Reader) (blob.Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return blob.Object{}, err
	}

	key := s.objectKey(fileName)
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      &s.cfg.Bucket,
		Key:         &key,
		Body:        strings.NewReader(string(data)),
		ContentType: &contentType,
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return blob.Object{}, fmt.Errorf("put object %s: %w", key, err)
	}

	return blob.Object{
		URL:  s.cfg.BaseURL + "/" + key,
		Size: int64(len(data)),
	}, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	key, ok := s.keyFromURL(url)
	if !ok {
		return blob.ErrNotFound
	}

	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: &s.cfg.Bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *Store) objectKey(fileName string) string {
	key := uuid.NewString() + "-" + fileName
	if s.cfg.KeyPrefix != "" {
		key = strings.TrimRight(s.cfg.KeyPrefix, "/") + "/" + key
	}
	return key
}

func (s *Store) keyFromURL(url string) (string, bool) {
	prefix := s.cfg.BaseURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
