package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug", gin.DebugMode))
	require.NoError(t, Init("info", gin.ReleaseMode))
	assert.Error(t, Init("loud", gin.ReleaseMode))
}

func TestGinRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, Init("error", gin.ReleaseMode))

	r := gin.New()
	r.Use(GinLogger(), GinRecovery(true))
	r.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}
