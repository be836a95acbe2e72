package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PatternStudio-server/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Compile-time check
var _ HistoryRepository = (*GormHistoryRepository)(nil)

type GormHistoryRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewGormHistoryRepository(db *gorm.DB, logger *zap.Logger) *GormHistoryRepository {
	return &GormHistoryRepository{
		db:     db,
		logger: logger.Named("HistoryRepo"),
	}
}

func (r *GormHistoryRepository) List(ctx context.Context) ([]models.GenerationSession, error) {
	var sessions []models.GenerationSession
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return sessions, nil
}

func (r *GormHistoryRepository) Append(ctx context.Context, s models.GenerationSession) (models.GenerationSession, error) {
	s.CreatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
		return models.GenerationSession{}, fmt.Errorf("append history: %w", err)
	}
	return s, nil
}

func (r *GormHistoryRepository) Get(ctx context.Context, id string) (models.GenerationSession, error) {
	var s models.GenerationSession
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.GenerationSession{}, ErrNotFound
	}
	if err != nil {
		return models.GenerationSession{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *GormHistoryRepository) UpdateImage(ctx context.Context, sessionID string, img models.GeneratedImage) error {
	s, err := r.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	found := false
	for i := range s.Images {
		if s.Images[i].ID == img.ID {
			s.Images[i] = img
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	return r.saveImages(ctx, sessionID, s.Images)
}

func (r *GormHistoryRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.GenerationSession{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormHistoryRepository) RemoveImage(ctx context.Context, sessionID, imageID string) (models.GeneratedImage, error) {
	s, err := r.Get(ctx, sessionID)
	if err != nil {
		return models.GeneratedImage{}, err
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
	if err := r.saveImages(ctx, sessionID, remaining); err != nil {
		return models.GeneratedImage{}, err
	}
	return removed, nil
}

func (r *GormHistoryRepository) saveImages(ctx context.Context, sessionID string, images models.GeneratedImageList) error {
	err := r.db.WithContext(ctx).Model(&models.GenerationSession{}).
		Where("id = ?", sessionID).
		Update("images", images).Error
	if err != nil {
		return fmt.Errorf("update session images: %w", err)
	}
	return nil
}
