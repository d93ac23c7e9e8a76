package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/pkg/middleware/requestid"
)

// Audit writes one audit line for every successful mutation on the route, naming the actor and target.
func Audit(log *zap.Logger, action string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("audit")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if session := SessionFromContext(c); session != nil {
			fields = append(fields, zap.String("actor", session.User.ID), zap.String("role", string(session.User.Role)))
		}
		if target := c.Param("id"); target != "" {
			fields = append(fields, zap.String("target", target))
		} else if target := c.Param("usn"); target != "" {
			fields = append(fields, zap.String("target", target))
		}
		if reqID := requestid.Value(c); reqID != "" {
			fields = append(fields, zap.String("request_id", reqID))
		}
		log.Info("mutation", fields...)
	}
}
