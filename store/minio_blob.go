package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Compile-time check
var _ BlobStore = (*MinioBlobStore)(nil)

type MinioBlobStore struct {
	client *minio.Client
	bucket string
	domain string // 为空时退回预签名 URL
	logger *zap.Logger
}

func NewMinioBlobStore(client *minio.Client, bucket, domain string, logger *zap.Logger) *MinioBlobStore {
	return &MinioBlobStore{
		client: client,
		bucket: bucket,
		domain: strings.TrimRight(domain, "/"),
		logger: logger.Named("MinioBlob"),
	}
}

// ContentTypeByExt 根据文件扩展名确定 ContentType
func ContentTypeByExt(objectName string) string {
	switch filepath.Ext(objectName) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func (s *MinioBlobStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查 Bucket 失败: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("创建 Bucket 失败: %w", err)
		}
		s.logger.Info("Bucket 已创建", zap.String("bucket", s.bucket))
	}
	return nil
}

func (s *MinioBlobStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = ContentTypeByExt(objectName)
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传到 MinIO 失败: %w", err)
	}
	return s.objectURL(ctx, objectName)
}

func (s *MinioBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	var urls []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("列举对象失败: %w", obj.Err)
		}
		u, err := s.objectURL(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

// Delete 单个对象删除失败不中断，剩余对象继续处理，失败汇总后返回。
func (s *MinioBlobStore) Delete(ctx context.Context, urls ...string) error {
	var errs []error
	for _, u := range urls {
		objectName, ok := s.objectNameFromURL(u)
		if !ok {
			s.logger.Warn("无法从 URL 解析对象名，跳过", zap.String("url", u))
			continue
		}
		if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
			s.logger.Warn("删除对象失败，继续处理剩余对象",
				zap.String("object", objectName), zap.Error(err))
			errs = append(errs, fmt.Errorf("删除对象 %s 失败: %w", objectName, err))
		}
	}
	return errors.Join(errs...)
}

func (s *MinioBlobStore) objectURL(ctx context.Context, objectName string) (string, error) {
	if s.domain != "" {
		return fmt.Sprintf("%s/%s/%s", s.domain, s.bucket, objectName), nil
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, 72*time.Hour, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成签名 URL 失败: %w", err)
	}
	return presigned.String(), nil
}

// objectNameFromURL 从 URL 中取出桶内对象名（路径中 bucket 之后的部分）。
func (s *MinioBlobStore) objectNameFromURL(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	marker := s.bucket + "/"
	idx := strings.Index(path, marker)
	if idx < 0 {
		return "", false
	}
	name := path[idx+len(marker):]
	if name == "" {
		return "", false
	}
	return name, true
}
