package service

import (
	"context"

	"PatternStudio-server/models"
	"PatternStudio-server/store"

	"go.uber.org/zap"
)

// HistoryService 把元数据删除和 Blob 清理协调成一次逻辑删除。
// Blob 清理尽力而为：失败只记日志不中断——丢一个对象是清理泄漏，
// 元数据还在而 Blob 没了才是更糟的故障，所以元数据删除始终要执行。
type HistoryService struct {
	history store.HistoryRepository
	blobs   store.BlobStore
	logger  *zap.Logger
}

func NewHistoryService(history store.HistoryRepository, blobs store.BlobStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		history: history,
		blobs:   blobs,
		logger:  logger.Named("HistoryService"),
	}
}

func (h *HistoryService) List(ctx context.Context) ([]models.GenerationSession, error) {
	return h.history.List(ctx)
}

func (h *HistoryService) Get(ctx context.Context, id string) (models.GenerationSession, error) {
	return h.history.Get(ctx, id)
}

// DeleteSession 删除一条会话及其全部 Blob。
// URL 来源有二：记录里引用的 + 会话目录下实际存在的（防止崩溃运行
// 留下的孤儿对象），合并去重后删除。
func (h *HistoryService) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := h.history.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	urls := make(map[string]struct{})
	for _, img := range session.Images {
		if img.GeneratedImageURL != "" {
			urls[img.GeneratedImageURL] = struct{}{}
		}
		for _, ref := range img.Refinements {
			if ref.GeneratedImageURL != "" {
				urls[ref.GeneratedImageURL] = struct{}{}
			}
		}
	}
	stored, err := h.blobs.List(ctx, SessionBlobPrefix(sessionID))
	if err != nil {
		h.logger.Warn("列举会话对象失败，仅删除记录中引用的 Blob",
			zap.String("sessionID", sessionID), zap.Error(err))
	}
	for _, u := range stored {
		urls[u] = struct{}{}
	}

	toDelete := make([]string, 0, len(urls))
	for u := range urls {
		toDelete = append(toDelete, u)
	}
	if len(toDelete) > 0 {
		if err := h.blobs.Delete(ctx, toDelete...); err != nil {
			h.logger.Warn("Blob 清理部分失败，继续删除元数据",
				zap.String("sessionID", sessionID), zap.Error(err))
		}
	}

	return h.history.Delete(ctx, sessionID)
}

// DeleteImage 从会话中删除单张图及其 Blob，会话记录保留。
func (h *HistoryService) DeleteImage(ctx context.Context, sessionID, imageID string) error {
	removed, err := h.history.RemoveImage(ctx, sessionID, imageID)
	if err != nil {
		return err
	}

	var urls []string
	if removed.GeneratedImageURL != "" {
		urls = append(urls, removed.GeneratedImageURL)
	}
	for _, ref := range removed.Refinements {
		if ref.GeneratedImageURL != "" {
			urls = append(urls, ref.GeneratedImageURL)
		}
	}
	if len(urls) > 0 {
		if err := h.blobs.Delete(ctx, urls...); err != nil {
			h.logger.Warn("删除图片 Blob 失败",
				zap.String("sessionID", sessionID),
				zap.String("imageID", imageID),
				zap.Error(err))
		}
	}
	return nil
}
