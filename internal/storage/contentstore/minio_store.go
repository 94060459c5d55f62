package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/legion-labs/databuild-go/internal/domain"
	platformstore "github.com/legion-labs/databuild-go/internal/platform/objectstore"
)

// MinioStore keeps blobs in an S3-compatible bucket, keyed by their content
// checksum.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(cfg platformstore.Config) (*MinioStore, error) {
	client, err := platformstore.NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	return &MinioStore{client: client, bucket: cfg.BucketContent}, nil
}

func NewMinioStoreWithClient(client *minio.Client, bucket string) (*MinioStore, error) {
	if client == nil {
		return nil, fmt.Errorf("minio client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, data []byte) (domain.Checksum, error) {
	checksum := domain.ChecksumOf(data)
	exists, err := s.Exists(ctx, checksum)
	if err != nil {
		return "", err
	}
	if exists {
		return checksum, nil
	}
	opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
	_, err = s.client.PutObject(ctx, s.bucket, string(checksum), bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", fmt.Errorf("put blob %s: %w", checksum, err)
	}
	return checksum, nil
}

func (s *MinioStore) Get(ctx context.Context, checksum domain.Checksum) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, string(checksum), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", checksum, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob %s: %w", checksum, err)
	}
	return data, nil
}

func (s *MinioStore) Exists(ctx context.Context, checksum domain.Checksum) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, string(checksum), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %s: %w", checksum, err)
	}
	return true, nil
}
