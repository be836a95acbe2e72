package api

import (
	"errors"
	"net/http"

	"PatternStudio-server/service"
	"PatternStudio-server/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// API 持有全部依赖，handler 都挂在它上面，不用包级全局。
type API struct {
	TemplateSets *store.TemplateSetRepository
	Patterns     store.PatternRepository
	History      *service.HistoryService
	Orchestrator *service.Orchestrator
	Registry     *service.SessionRegistry
	Dispatcher   *service.Dispatcher
	Blobs        store.BlobStore
	Logger       *zap.Logger
}

// writeError 把仓库层的错误分类映射为 HTTP 状态码。
func (a *API) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrVersionRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "缺少版本号，请在 " + VersionHeader + " 头中携带当前版本"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "数据已被其他人修改，请重新加载后再保存", "conflict": true})
	case errors.Is(err, store.ErrDuplicateName):
		c.JSON(http.StatusConflict, gin.H{"error": "同一范围内已存在同名图案"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "目标不存在或已被删除"})
	case errors.Is(err, store.ErrTooMuchContention):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "并发修改过于频繁，请稍后重试"})
	default:
		a.Logger.Error("请求处理失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
