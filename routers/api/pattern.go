package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"PatternStudio-server/models"
	"PatternStudio-server/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListPatterns 可选按 product_type_id 严格过滤。
func (a *API) ListPatterns(c *gin.Context) {
	patterns, err := a.Patterns.List(c.Request.Context(), c.Query("product_type_id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	if patterns == nil {
		patterns = []models.PersistentPattern{}
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns})
}

// CreatePattern 登记一个已有 URL 的图案。
func (a *API) CreatePattern(c *gin.Context) {
	var req struct {
		Name          string `json:"name"`
		URL           string `json:"url"`
		ProductTypeID string `json:"productTypeId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "名称和 URL 不能为空"})
		return
	}

	created, err := a.Patterns.Add(c.Request.Context(), models.PersistentPattern{
		Name:          req.Name,
		URL:           req.URL,
		ProductTypeID: req.ProductTypeID,
	})
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pattern": created})
}

// UploadPattern 上传花纹图片并入库：先写 Blob 拿到 URL，再建记录。
// 重名被拒时把刚传的对象清掉，避免留孤儿。
func (a *API) UploadPattern(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少文件: " + err.Error()})
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "名称不能为空"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取文件失败: " + err.Error()})
		return
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".png"
	}
	objectName := fmt.Sprintf("patterns/%s%s", uuid.NewString(), ext)
	url, err := a.Blobs.Put(c.Request.Context(), objectName, src, file.Size, store.ContentTypeByExt(objectName))
	if err != nil {
		a.writeError(c, err)
		return
	}

	created, err := a.Patterns.Add(c.Request.Context(), models.PersistentPattern{
		Name:          name,
		URL:           url,
		ProductTypeID: c.PostForm("product_type_id"),
	})
	if err != nil {
		if delErr := a.Blobs.Delete(c.Request.Context(), url); delErr != nil {
			a.Logger.Warn("回收图案对象失败", zap.String("url", url), zap.Error(delErr))
		}
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pattern": created})
}

func (a *API) RenamePattern(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "名称不能为空"})
		return
	}
	if err := a.Patterns.Rename(c.Request.Context(), c.Param("pattern_id"), req.Name); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) DeletePattern(c *gin.Context) {
	if err := a.Patterns.Remove(c.Request.Context(), c.Param("pattern_id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
