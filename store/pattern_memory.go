package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"PatternStudio-server/models"

	"github.com/google/uuid"
)

// Compile-time check
var _ PatternRepository = (*MemoryPatternRepository)(nil)

// MemoryPatternRepository MySQL 未配置时的降级实现，也是单元测试用的假件。
type MemoryPatternRepository struct {
	mu       sync.Mutex
	patterns map[string]models.PersistentPattern
}

func NewMemoryPatternRepository() *MemoryPatternRepository {
	return &MemoryPatternRepository{patterns: make(map[string]models.PersistentPattern)}
}

func (r *MemoryPatternRepository) List(ctx context.Context, scopeID string) ([]models.PersistentPattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PersistentPattern
	for _, p := range r.patterns {
		if scopeID != "" && p.ProductTypeID != scopeID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryPatternRepository) Add(ctx context.Context, p models.PersistentPattern) (models.PersistentPattern, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Name = strings.TrimSpace(p.Name)
	for _, existing := range r.patterns {
		if existing.ProductTypeID == p.ProductTypeID &&
			normalizePatternName(existing.Name) == normalizePatternName(p.Name) {
			return models.PersistentPattern{}, ErrDuplicateName
		}
	}
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	r.patterns[p.ID] = p
	return p, nil
}

func (r *MemoryPatternRepository) Rename(ctx context.Context, id, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patterns[id]
	if !ok {
		return ErrNotFound
	}
	p.Name = strings.TrimSpace(newName)
	r.patterns[id] = p
	return nil
}

func (r *MemoryPatternRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patterns[id]; !ok {
		return ErrNotFound
	}
	delete(r.patterns, id)
	return nil
}
