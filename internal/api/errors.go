package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/disaster-reports/internal/apperr"
)

// writeError aborts the request with the JSON body for err. Server-side
// failures are attached to the context so the request logger records the
// cause that the response hides.
func writeError(c *gin.Context, err error) {
	status, resp := apperr.ToResponse(err)
	if status >= 500 {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, resp)
}

var errBadBody = apperr.Validation("invalid request body", map[string]string{"body": "must be a JSON object"})
