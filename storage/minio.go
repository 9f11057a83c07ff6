package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/NancyGarg/transcribe-ai/config"
	"github.com/NancyGarg/transcribe-ai/logger"
)

// ObjectPrefix is the key prefix of mirrored recordings.
const ObjectPrefix = "recordings/"

// ObjectStore is the subset of *minio.Client the mirror uses.
type ObjectStore interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// NewMinioClient creates a client from configuration.
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	if cfg.MinioEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is not set")
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return client, nil
}

// EnsureBucket creates bucket if it does not exist.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	logger.Info("Created MinIO bucket", logger.String("bucket", bucket))
	return nil
}

// MinioAudioStore mirrors a LocalAudioStore into a bucket. The local copy is
// authoritative; a missing local file is restored from the bucket.
type MinioAudioStore struct {
	local  *LocalAudioStore
	client ObjectStore
	bucket string
}

// NewMinioAudioStore wraps local with a bucket mirror.
func NewMinioAudioStore(local *LocalAudioStore, client ObjectStore, bucket string) *MinioAudioStore {
	return &MinioAudioStore{local: local, client: client, bucket: bucket}
}

// ObjectName returns the bucket key for id.
func ObjectName(id string) string {
	return path.Join(ObjectPrefix, id+AudioExt)
}

// Local returns the wrapped local store.
func (s *MinioAudioStore) Local() *LocalAudioStore {
	return s.local
}

// PathFor returns the local path for id.
func (s *MinioAudioStore) PathFor(id string) string {
	return s.local.PathFor(id)
}

// Save stores the file locally, then uploads it. An upload failure is logged
// and does not fail the save.
func (s *MinioAudioStore) Save(ctx context.Context, tempPath, id string) (string, error) {
	dest, err := s.local.Save(ctx, tempPath, id)
	if err != nil {
		return "", err
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, ObjectName(id), dest, minio.PutObjectOptions{
		ContentType: "audio/aac",
	}); err != nil {
		logger.Warn("Failed to mirror recording to MinIO", logger.RecordingID(id), logger.ErrorField(err))
	}
	return dest, nil
}

// Exists reports whether audio is available, restoring the local copy from
// the bucket when only the mirror has it.
func (s *MinioAudioStore) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.local.Exists(ctx, id)
	if err != nil || ok {
		return ok, err
	}

	if _, err := s.client.StatObject(ctx, s.bucket, ObjectName(id), minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", ObjectName(id), err)
	}
	if err := s.client.FGetObject(ctx, s.bucket, ObjectName(id), s.local.PathFor(id), minio.GetObjectOptions{}); err != nil {
		os.Remove(s.local.PathFor(id))
		return false, fmt.Errorf("failed to restore %s: %w", ObjectName(id), err)
	}
	logger.Info("Restored recording from MinIO", logger.RecordingID(id))
	return true, nil
}

// Delete removes both copies. Both are attempted even if one fails.
func (s *MinioAudioStore) Delete(ctx context.Context, id string) error {
	localErr := s.local.Delete(ctx, id)
	remoteErr := s.client.RemoveObject(ctx, s.bucket, ObjectName(id), minio.RemoveObjectOptions{})
	if remoteErr != nil && !isNoSuchKey(remoteErr) {
		remoteErr = fmt.Errorf("failed to remove %s: %w", ObjectName(id), remoteErr)
	} else {
		remoteErr = nil
	}
	return errors.Join(localErr, remoteErr)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
