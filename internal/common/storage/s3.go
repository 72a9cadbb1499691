// internal/common/storage/s3.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	appconfig "idea-eval-workers/internal/common/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client the blob store uses, extracted for
// test fakes.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// BlobStore stores intake artifacts in S3 and hands back retrievable URLs.
type BlobStore struct {
	client        S3API
	bucket        string
	keyPrefix     string
	publicBaseURL string
}

// NewBlobStore creates a BlobStore from application config.
func NewBlobStore(ctx context.Context, cfg appconfig.StorageConfig) (*BlobStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &BlobStore{
		client:        s3.NewFromConfig(awsCfg),
		bucket:        cfg.S3.Bucket,
		keyPrefix:     cfg.S3.KeyPrefix,
		publicBaseURL: strings.TrimSuffix(cfg.S3.PublicBaseURL, "/"),
	}, nil
}

// NewBlobStoreWithClient builds a BlobStore over an injected client.
func NewBlobStoreWithClient(client S3API, bucket, keyPrefix, publicBaseURL string) *BlobStore {
	return &BlobStore{
		client:        client,
		bucket:        bucket,
		keyPrefix:     keyPrefix,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Upload writes the blob under evaluationID/fileName and returns its
// retrievable URL and object key.
func (b *BlobStore) Upload(ctx context.Context, evaluationID, fileName, contentType string, data []byte) (url string, key string, err error) {
	key = path.Join(b.keyPrefix, evaluationID, fileName)

	input := &s3.PutObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = &contentType
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", key, err
	}

	return fmt.Sprintf("%s/%s", b.publicBaseURL, key), key, nil
}

// Download fetches the blob behind a URL previously returned by Upload. Used
// by the pipeline's document path, where the stored content already is text.
func (b *BlobStore) Download(ctx context.Context, url string) ([]byte, error) {
	key := strings.TrimPrefix(strings.TrimPrefix(url, b.publicBaseURL), "/")

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &b.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}
