package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Nakib00/asps-dashboard-api/internal/middleware"
	"github.com/Nakib00/asps-dashboard-api/internal/models"
	appErrors "github.com/Nakib00/asps-dashboard-api/pkg/errors"
	"github.com/Nakib00/asps-dashboard-api/pkg/response"
)

// currentSession pulls the acting session off the context, responding with an
// auth error when the middleware did not run or rejected the token.
func currentSession(c *gin.Context) (models.Session, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		response.Error(c, appErrors.ErrAuth)
		return models.Session{}, false
	}
	return session, true
}
