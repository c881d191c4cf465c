package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// respond writes the uniform response envelope. Semantic failures still use
// HTTP 200; callers inspect the success flag.
func respond(c echo.Context, ok bool, message string, payload map[string]any) error {
	res := make(map[string]any, len(payload)+2)
	res["success"] = ok
	if message != "" {
		res["message"] = message
	}
	for k, v := range payload {
		res[k] = v
	}
	return c.JSON(http.StatusOK, res)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "unauthorized",
	})
}
