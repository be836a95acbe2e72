package store

import (
	"context"
	"strings"

	"PatternStudio-server/models"
)

// PatternRepository 图案库。范围策略为严格匹配：
// 按 scopeID 过滤时只返回 product_type_id 完全相等的记录，
// 未指定范围的图案只在不带过滤的 List 中出现。
// 这里不需要乐观锁，追加/按 id 删除的写入模式丢失更新风险很低。
type PatternRepository interface {
	List(ctx context.Context, scopeID string) ([]models.PersistentPattern, error)
	Add(ctx context.Context, p models.PersistentPattern) (models.PersistentPattern, error)
	Rename(ctx context.Context, id, newName string) error
	Remove(ctx context.Context, id string) error
}

// normalizePatternName 重名比较口径：去首尾空格 + 小写。
func normalizePatternName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
