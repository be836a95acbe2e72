package store

import (
	"context"
	"io"
)

// BlobStore 对象存储协作方。核心层只和 URL 字符串打交道，
// 对象按会话分目录（sessions/<session_id>/...），方便按前缀整体清理。
type BlobStore interface {
	// Put 上传并返回可访问的 URL
	Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error)
	// List 返回指定前缀下所有对象的 URL
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete 按 URL 删除若干对象
	Delete(ctx context.Context, urls ...string) error
}
