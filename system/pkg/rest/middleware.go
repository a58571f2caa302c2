package rest

import (
	"time"

	"kyc-attestation/system/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIdHeader = "X-Request-Id"

type Middleware struct {
	Handler gin.HandlerFunc
	Group   string
}

func NewMiddleware(group string, handler gin.HandlerFunc) Middleware {
	return Middleware{
		Group:   group,
		Handler: handler,
	}
}

// RequestLogger tags every request with a request id and logs its outcome.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(RequestIdHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		c.Header(RequestIdHeader, requestId)
		c.Set("request_id", requestId)

		start := time.Now()
		c.Next()

		log.Infof("%s %s -> %d in %s [%s]",
			c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start), requestId)
	}
}
