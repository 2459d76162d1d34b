package ginmw

import (
	"github.com/gin-gonic/gin"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/middleware"
)

// ValidateJSON evaluates the request body with v, stores the instance and
// results in the request context, and on failure aborts with the Issues
// payload.
func ValidateJSON(v *middleware.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, res, err := v.Decode(c.Request)
		if err != nil {
			code, payload := middleware.Status(err)
			c.AbortWithStatusJSON(code, payload)
			return
		}
		ctx := middleware.ContextWithResults(middleware.ContextWithInstance(c.Request.Context(), inst), res)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetInstance fetches the decoded body from gin.Context.
func GetInstance(c *gin.Context) (any, bool) {
	return middleware.InstanceFromContext(c.Request.Context())
}

// GetResults fetches the evaluation results from gin.Context.
func GetResults(c *gin.Context) (*jsonskema.Results, bool) {
	return middleware.ResultsFromContext(c.Request.Context())
}
