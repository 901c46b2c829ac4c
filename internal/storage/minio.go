package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioWriter stores results as objects under prefix in a bucket.
type MinioWriter struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioWriter connects to the object store and creates the bucket when it
// does not exist yet.
func NewMinioWriter(ctx context.Context, config *Config, prefix string) (*MinioWriter, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", config.Endpoint, err)
	}

	if err := ensureBucket(ctx, client, config.Bucket); err != nil {
		return nil, err
	}

	return &MinioWriter{client: client, bucket: config.Bucket, prefix: prefix}, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (w *MinioWriter) Write(ctx context.Context, name string, body []byte) (string, error) {
	objectName := ObjectName(w.prefix, name)
	location := fmt.Sprintf("s3://%s/%s", w.bucket, objectName)

	_, err := w.client.PutObject(ctx, w.bucket, objectName, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/xml"})
	if err != nil {
		return "", &WriteError{Location: location, Err: err}
	}

	return location, nil
}

// ObjectName is the object key of the result for a source file.
func ObjectName(prefix, source string) string {
	return strings.TrimLeft(path.Join(prefix, ResultName(source)), "/")
}
