package store

import (
	"context"
	"strconv"
	"sync"
)

// Compile-time check
var _ VersionedStore = (*MemoryStore)(nil)

// MemoryStore 开发/测试用的内存实现，通过构造函数注入，不做包级单例。
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *MemoryStore) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*string, len(keys))
	for i, k := range keys {
		if v, ok := s.data[k]; ok {
			val := v
			out[i] = &val
		}
	}
	return out, nil
}

// CompareAndSwap 与 Redis 版的 Lua 脚本保持一致的语义：
// 版本键缺失按 "1" 处理，匹配则写数据并自增版本号。
func (s *MemoryStore) CompareAndSwap(ctx context.Context, versionKey, dataKey, expectedVersion, value string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.data[versionKey]
	if !ok {
		cur = "1"
	}
	if cur != expectedVersion {
		return "", false, nil
	}
	n, err := strconv.Atoi(cur)
	if err != nil {
		n = 1
	}
	next := strconv.Itoa(n + 1)
	s.data[versionKey] = next
	s.data[dataKey] = value
	return next, true, nil
}
