package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Compile-time check
var _ BlobStore = (*MemoryBlobStore)(nil)

// MemoryBlobStore MinIO 未配置时的降级实现，也是测试里统计级联删除的假件。
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte // objectName -> data
}

const memoryBlobBase = "mem://blobs"

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{objects: make(map[string][]byte)}
}

func (s *MemoryBlobStore) Put(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = data
	return memoryBlobBase + "/" + objectName, nil
}

func (s *MemoryBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var urls []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			urls = append(urls, memoryBlobBase+"/"+name)
		}
	}
	sort.Strings(urls)
	return urls, nil
}

// Delete 与 MinIO 版语义一致：单个失败不中断剩余对象。
func (s *MemoryBlobStore) Delete(ctx context.Context, urls ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, u := range urls {
		name := strings.TrimPrefix(u, memoryBlobBase+"/")
		if name == u {
			errs = append(errs, fmt.Errorf("unknown blob url: %s", u))
			continue
		}
		delete(s.objects, name)
	}
	return errors.Join(errs...)
}

// Count 测试辅助：当前对象数量。
func (s *MemoryBlobStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
