package echomw

import (
	"github.com/labstack/echo/v4"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/middleware"
)

// ValidateJSON evaluates the request body with v, stores the instance and
// results in the request context, or responds with the Issues payload.
func ValidateJSON(v *middleware.Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			inst, res, err := v.Decode(c.Request())
			if err != nil {
				code, payload := middleware.Status(err)
				return c.JSON(code, payload)
			}
			ctx := middleware.ContextWithResults(middleware.ContextWithInstance(c.Request().Context(), inst), res)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// GetInstance fetches the decoded body from echo.Context.
func GetInstance(c echo.Context) (any, bool) {
	return middleware.InstanceFromContext(c.Request().Context())
}

// GetResults fetches the evaluation results from echo.Context.
func GetResults(c echo.Context) (*jsonskema.Results, bool) {
	return middleware.ResultsFromContext(c.Request().Context())
}
