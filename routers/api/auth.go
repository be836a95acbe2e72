package api

import (
	"net/http"
	"time"

	"PatternStudio-server/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const sessionCookie = "ps_session"

// Login 共享口令换签名 Cookie，没有用户身份概念。
func (a *API) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Password != config.AppConfig.Server.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "口令错误"})
		return
	}

	claims := jwt.RegisteredClaims{
		Subject:   "studio",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(7 * 24 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(config.AppConfig.Server.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "签发会话失败"})
		return
	}
	c.SetCookie(sessionCookie, token, int((7 * 24 * time.Hour).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AuthRequired 校验会话 Cookie 的中间件。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(sessionCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "未登录"})
			return
		}
		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.Server.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "会话无效或已过期"})
			return
		}
		c.Next()
	}
}
