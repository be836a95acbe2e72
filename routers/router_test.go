package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"PatternStudio-server/routers/api"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRoutesRequireSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := InitRouter(&api.API{})

	paths := []string{
		"/v1/api/template-sets",
		"/v1/api/history",
		"/v1/api/sessions/abc/wss",
	}
	for _, p := range paths {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}
}
