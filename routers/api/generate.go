package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"PatternStudio-server/models"
	"PatternStudio-server/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func isPreconditionErr(err error) bool {
	return errors.Is(err, service.ErrNoTemplates) ||
		errors.Is(err, service.ErrNoEligibleTemplates) ||
		errors.Is(err, service.ErrPatternMissing) ||
		errors.Is(err, service.ErrPatternNameMissing)
}

// StartGeneration 组装输入、校验前置条件、登记会话并派发执行。
// 返回 202 和全部 pending 图，UI 拿到后即可渲染逐项进度。
func (a *API) StartGeneration(c *gin.Context) {
	var req struct {
		ProductTypeID      string                `json:"productTypeId"`
		PatternImageURL    string                `json:"patternImageUrl"`
		PatternName        string                `json:"patternName"`
		PromptModification string                `json:"promptModification"`
		OutputSettings     models.OutputSettings `json:"outputSettings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sets, _, err := a.TemplateSets.FetchAll(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	var selected *models.TemplateSet
	for i := range sets {
		if sets[i].ID == req.ProductTypeID {
			selected = &sets[i]
			break
		}
	}
	if selected == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "产品类型不存在"})
		return
	}

	if req.OutputSettings.Mode == "" {
		req.OutputSettings.Mode = models.OutputModeManual
	}
	input := service.GenerationInput{
		ProductTypeID:      selected.ID,
		PatternImageURL:    req.PatternImageURL,
		PatternName:        req.PatternName,
		PromptModification: req.PromptModification,
		Settings:           req.OutputSettings,
		Templates:          selected.Templates,
	}

	session, err := a.Orchestrator.PrepareSession(input)
	if err != nil {
		if isPreconditionErr(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// 同一产品类型已有会话在跑
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if err := a.Dispatcher.Dispatch(service.SessionJob{Input: input, Session: session}); err != nil {
		a.Registry.End(session)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "任务派发失败: " + err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"session": session})
}

// GetSession 运行中读 registry，结束后读历史。
func (a *API) GetSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if s, ok := a.Registry.Get(sessionID); ok {
		c.JSON(http.StatusOK, gin.H{"session": s, "live": true})
		return
	}
	s, err := a.History.Get(c.Request.Context(), sessionID)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s, "live": false})
}

// RefineImage 对已完成的单张图追加一次修改。
func (a *API) RefineImage(c *gin.Context) {
	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := a.Orchestrator.Refine(c.Request.Context(), c.Param("session_id"), c.Param("image_id"), req.Instruction)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": img})
}

// SessionProgressWebSocket 会话进度推送：每秒轮询 registry，
// 有变化就推；会话从 registry 消失说明已落库，推最终状态后关闭。
func (a *API) SessionProgressWebSocket(c *gin.Context) {
	sessionID := c.Param("session_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WebSocket升级失败"})
		return
	}
	defer conn.Close()

	fingerprint := func(s models.GenerationSession) string {
		parts := make([]string, 0, len(s.Images))
		for _, img := range s.Images {
			parts = append(parts, img.ID+":"+img.Status)
		}
		return strings.Join(parts, ",")
	}

	var prev string
	if s, ok := a.Registry.Get(sessionID); ok {
		_ = conn.WriteJSON(s)
		prev = fingerprint(s)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s, ok := a.Registry.Get(sessionID)
		if !ok {
			final, err := a.History.Get(c.Request.Context(), sessionID)
			if err == nil {
				_ = conn.WriteJSON(final)
			} else {
				_ = conn.WriteJSON(map[string]interface{}{"error": "session not found"})
			}
			return
		}
		if cur := fingerprint(s); cur != prev {
			if err := conn.WriteJSON(s); err != nil {
				return
			}
			prev = cur
		}
	}
}
