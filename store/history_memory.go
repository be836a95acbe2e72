package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"PatternStudio-server/models"
)

// Compile-time check
var _ HistoryRepository = (*MemoryHistoryRepository)(nil)

type MemoryHistoryRepository struct {
	mu       sync.Mutex
	sessions map[string]models.GenerationSession
}

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{sessions: make(map[string]models.GenerationSession)}
}

func (r *MemoryHistoryRepository) List(ctx context.Context) ([]models.GenerationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.GenerationSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryHistoryRepository) Append(ctx context.Context, s models.GenerationSession) (models.GenerationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.CreatedAt = time.Now()
	r.sessions[s.ID] = s
	return s, nil
}

func (r *MemoryHistoryRepository) Get(ctx context.Context, id string) (models.GenerationSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return models.GenerationSession{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryHistoryRepository) UpdateImage(ctx context.Context, sessionID string, img models.GeneratedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	for i := range s.Images {
		if s.Images[i].ID == img.ID {
			s.Images[i] = img
			r.sessions[sessionID] = s
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryHistoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *MemoryHistoryRepository) RemoveImage(ctx context.Context, sessionID, imageID string) (models.GeneratedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return models.GeneratedImage{}, ErrNotFound
	}
	var removed models.GeneratedImage
	remaining := make(models.GeneratedImageList, 0, len(s.Images))
	found := false
	for _, img := range s.Images {
		if img.ID == imageID {
			removed = img
			found = true
			continue
		}
		remaining = append(remaining, img)
	}
	if !found {
		return models.GeneratedImage{}, ErrNotFound
	}
	s.Images = remaining
	r.sessions[sessionID] = s
	return removed, nil
}
