package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"habit_tracker_backend/internal/config"
	"habit_tracker_backend/internal/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage 头像等上传文件的存储后端
type Storage interface {
	Save(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
}

// NewStorage 按配置选择本地磁盘或 MinIO
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "minio":
		return newMinioStorage(cfg)
	case "local", "":
		return &localStorage{basePath: cfg.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

type localStorage struct {
	basePath string
}

func (s *localStorage) Save(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	path := filepath.Join(s.basePath, filepath.Clean("/"+objectName))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return "", err
	}
	return "/uploads/" + strings.TrimPrefix(objectName, "/"), nil
}

type minioStorage struct {
	client *minio.Client
	bucket string
}

func newMinioStorage(cfg *config.StorageConfig) (*minioStorage, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds: credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
	})
	if err != nil {
		return nil, err
	}
	return &minioStorage{client: client, bucket: cfg.MinioBucket}, nil
}

func (s *minioStorage) Save(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://%s/%s/%s", s.client.EndpointURL().Host, s.bucket, objectName), nil
}

// AvatarObjectName 头像对象名，按用户分目录
func AvatarObjectName(userID uint, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("avatars/%d/%s%s", userID, model.GenerateUUID(), ext)
}
