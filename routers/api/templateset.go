package api

import (
	"net/http"

	"PatternStudio-server/models"
	"PatternStudio-server/store"

	"github.com/gin-gonic/gin"
)

// VersionHeader 模板集合的乐观锁版本号，读写响应都会带上，
// 写请求必须回传，相当于 ETag / If-Match。
const VersionHeader = "X-Collection-Version"

// GetTemplateSets 返回全部模板集合和当前版本号。
func (a *API) GetTemplateSets(c *gin.Context) {
	sets, version, err := a.TemplateSets.FetchAll(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.Header(VersionHeader, version)
	c.JSON(http.StatusOK, gin.H{
		"template_sets": sets,
		"version":       version,
	})
}

// ReplaceTemplateSets 全量替换。版本头缺失返回 428，版本落后返回 409，
// 调用方据此重新加载并决定放弃还是重做编辑。
func (a *API) ReplaceTemplateSets(c *gin.Context) {
	expectedVersion := c.GetHeader(VersionHeader)
	if expectedVersion == "" {
		a.writeError(c, store.ErrVersionRequired)
		return
	}

	var req struct {
		TemplateSets []models.TemplateSet `json:"template_sets"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newVersion, err := a.TemplateSets.ReplaceAll(c.Request.Context(), req.TemplateSets, expectedVersion)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.Header(VersionHeader, newVersion)
	c.JSON(http.StatusOK, gin.H{
		"version": newVersion,
	})
}

// CreateTemplateSet 追加一个集合，内部带 CAS 重试。
func (a *API) CreateTemplateSet(c *gin.Context) {
	var req models.TemplateSet
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "集合名称不能为空"})
		return
	}

	created, version, err := a.TemplateSets.Create(c.Request.Context(), req)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.Header(VersionHeader, version)
	c.JSON(http.StatusCreated, gin.H{
		"template_set": created,
		"version":      version,
	})
}
