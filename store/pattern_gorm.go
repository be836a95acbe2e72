package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PatternStudio-server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Compile-time check
var _ PatternRepository = (*GormPatternRepository)(nil)

type GormPatternRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewGormPatternRepository(db *gorm.DB, logger *zap.Logger) *GormPatternRepository {
	return &GormPatternRepository{
		db:     db,
		logger: logger.Named("PatternRepo"),
	}
}

func (r *GormPatternRepository) List(ctx context.Context, scopeID string) ([]models.PersistentPattern, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if scopeID != "" {
		q = q.Where("product_type_id = ?", scopeID)
	}
	var patterns []models.PersistentPattern
	if err := q.Find(&patterns).Error; err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	return patterns, nil
}

func (r *GormPatternRepository) Add(ctx context.Context, p models.PersistentPattern) (models.PersistentPattern, error) {
	p.Name = strings.TrimSpace(p.Name)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.PersistentPattern{}).
		Where("LOWER(TRIM(name)) = ? AND product_type_id = ?", normalizePatternName(p.Name), p.ProductTypeID).
		Count(&count).Error
	if err != nil {
		return models.PersistentPattern{}, fmt.Errorf("check pattern name: %w", err)
	}
	if count > 0 {
		return models.PersistentPattern{}, ErrDuplicateName
	}

	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return models.PersistentPattern{}, fmt.Errorf("create pattern: %w", err)
	}
	r.logger.Info("图案已保存", zap.String("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (r *GormPatternRepository) Rename(ctx context.Context, id, newName string) error {
	res := r.db.WithContext(ctx).Model(&models.PersistentPattern{}).
		Where("id = ?", id).
		Update("name", strings.TrimSpace(newName))
	if res.Error != nil {
		return fmt.Errorf("rename pattern: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormPatternRepository) Remove(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.PersistentPattern{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete pattern: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
