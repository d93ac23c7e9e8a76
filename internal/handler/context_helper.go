package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

// currentUser returns the session user, writing an Unauthorized envelope when there is none.
func currentUser(c *gin.Context) (models.User, bool) {
	session := middleware.SessionFromContext(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.User{}, false
	}
	return session.User, true
}

func metaWithCache(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	return middleware.ExtractMeta(c)
}
