package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AssetStore persists generated scene assets and returns the reference the
// scene records.
type AssetStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Assets uploads assets to a bucket served from baseURL
// (e.g. "https://cdn.canaldark.dev").
type S3Assets struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	baseURL string
}

func NewS3Assets(client *s3.Client, bucket, prefix, baseURL string) *S3Assets {
	return &S3Assets{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *S3Assets) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}
	if s.baseURL == "" {
		return "s3://" + s.bucket + "/" + key, nil
	}
	return s.baseURL + "/" + key, nil
}

// DirAssets writes assets under a local directory and returns file paths.
type DirAssets struct {
	Dir string
}

func (d DirAssets) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(d.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create asset dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write asset %s: %w", path, err)
	}
	return path, nil
}
