package rest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"kyc-attestation/system/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRegisterGroupsRoutesAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	var groupHits int
	Register(engine,
		[]Middleware{
			NewMiddleware("*", RequestLogger(logger.Nop())),
			NewMiddleware("v1", func(c *gin.Context) { groupHits++; c.Next() }),
		},
		[]Route{
			NewRoute(GET, "v1", "kyc/:subject", func(c *gin.Context) { c.String(http.StatusOK, c.Param("subject")) }),
			NewRoute(POST, "v1", "kyc/:subject", func(c *gin.Context) { c.Status(http.StatusCreated) }),
			NewRoute(GET, "internal", "health", func(c *gin.Context) { c.Status(http.StatusNoContent) }),
		},
	)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/kyc/abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIdHeader))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/kyc/abc", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/health", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 2, groupHits)
}
