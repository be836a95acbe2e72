package store

import (
	"context"

	"PatternStudio-server/models"
)

// HistoryRepository 生成历史的元数据存储。Blob 清理的协调逻辑
// 在 service.HistoryService，这里只负责记录本身。
type HistoryRepository interface {
	// List 按 created_at 倒序返回全部会话
	List(ctx context.Context) ([]models.GenerationSession, error)
	// Append 写入一条会话，时间戳由服务端生成，不信任调用方传入的值
	Append(ctx context.Context, s models.GenerationSession) (models.GenerationSession, error)
	Get(ctx context.Context, id string) (models.GenerationSession, error)
	// UpdateImage 覆盖会话中对应 ID 的一张图（refinement 写回用）
	UpdateImage(ctx context.Context, sessionID string, img models.GeneratedImage) error
	// Delete 仅删除元数据记录
	Delete(ctx context.Context, id string) error
	// RemoveImage 从会话数组中摘除一张图并返回它；会话本身保留，哪怕已清空
	RemoveImage(ctx context.Context, sessionID, imageID string) (models.GeneratedImage, error)
}
