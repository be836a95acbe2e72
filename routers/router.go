package routers

import (
	"PatternStudio-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(a *api.API) *gin.Engine {
	r := gin.Default()
	r.Static("/static", "./static")

	r.POST("/v1/api/auth/login", a.Login)
	r.POST("/v1/api/auth/logout", a.Logout)

	v1 := r.Group("/v1/api", a.AuthRequired())
	{
		v1.GET("/template-sets", a.GetTemplateSets)
		v1.PUT("/template-sets", a.ReplaceTemplateSets)
		v1.POST("/template-sets", a.CreateTemplateSet)

		v1.GET("/patterns", a.ListPatterns)
		v1.POST("/patterns", a.CreatePattern)
		v1.POST("/patterns/upload", a.UploadPattern)
		v1.PUT("/patterns/:pattern_id", a.RenamePattern)
		v1.DELETE("/patterns/:pattern_id", a.DeletePattern)

		v1.POST("/generate", a.StartGeneration)
		v1.GET("/sessions/:session_id", a.GetSession)
		v1.POST("/sessions/:session_id/images/:image_id/refine", a.RefineImage)

		v1.GET("/history", a.ListHistory)
		v1.DELETE("/history/:session_id", a.DeleteHistory)

		// 浏览器在 Upgrade 请求上同样携带 Cookie，进度推送走同一道鉴权
		v1.GET("/sessions/:session_id/wss", a.SessionProgressWebSocket)
	}
	return r
}
