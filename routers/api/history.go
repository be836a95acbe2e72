package api

import (
	"net/http"

	"PatternStudio-server/models"

	"github.com/gin-gonic/gin"
)

// ListHistory 按时间倒序返回全部会话。
func (a *API) ListHistory(c *gin.Context) {
	sessions, err := a.History.List(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	if sessions == nil {
		sessions = []models.GenerationSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// DeleteHistory 删除整条会话或会话中的单张图，用 type 字段区分。
// 两种删除都会连带回收对应的 Blob。
func (a *API) DeleteHistory(c *gin.Context) {
	sessionID := c.Param("session_id")
	var req struct {
		Type    string `json:"type"` // "session" 或 "image"
		ImageID string `json:"imageId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Type {
	case "session":
		if err := a.History.DeleteSession(c.Request.Context(), sessionID); err != nil {
			a.writeError(c, err)
			return
		}
	case "image":
		if req.ImageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "imageId 不能为空"})
			return
		}
		if err := a.History.DeleteImage(c.Request.Context(), sessionID, req.ImageID); err != nil {
			a.writeError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "type 必须是 session 或 image"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
