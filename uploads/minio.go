package uploads

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cppla/blogapi/config"
)

// MinIOStorage puts images into a MinIO (or any S3 compatible) bucket.
type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
	maxBytes   int64
}

// NewMinIOStorage connects to MinIO and makes sure the bucket exists.
func NewMinIOStorage(ctx context.Context, cfg config.AppConfig) (*MinIOStorage, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
		Region: cfg.MinIORegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.MinIOBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{Region: cfg.MinIORegion}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.MinIOBucket, err)
		}
	}

	base := cfg.MinIOPublicBase
	if base == "" {
		scheme := "http"
		if cfg.MinIOUseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinIOEndpoint, cfg.MinIOBucket)
	}

	return &MinIOStorage{
		client:     client,
		bucket:     cfg.MinIOBucket,
		publicBase: strings.TrimRight(base, "/"),
		maxBytes:   int64(cfg.MaxUploadMB) << 20,
	}, nil
}

func (s *MinIOStorage) Save(ctx context.Context, folder string, header *multipart.FileHeader) (string, error) {
	img, err := openImage(header, folder, s.maxBytes)
	if err != nil {
		return "", err
	}
	defer img.file.Close()

	_, err = s.client.PutObject(ctx, s.bucket, img.objectName, img.file, img.size, minio.PutObjectOptions{
		ContentType: img.contentType,
		UserMetadata: map[string]string{
			"original-filename": header.Filename,
			"uploaded-at":       time.Now().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.publicBase + "/" + img.objectName, nil
}

func (s *MinIOStorage) Remove(ctx context.Context, ref string) error {
	object := strings.TrimPrefix(ref, s.publicBase+"/")
	if object == ref || object == "" {
		return fmt.Errorf("not a bucket reference: %q", ref)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}
