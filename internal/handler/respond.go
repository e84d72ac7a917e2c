// Package handler implements the HTTP endpoints. Every error response
// uses the same envelope: {"success": false, "message": "..."} plus an
// optional "fields" list on validation failures, so clients have a
// single shape to parse.
package handler

import (
	"github.com/labstack/echo/v4"
)

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{
		"success": false,
		"message": message,
	})
}

func jsonValidation(c echo.Context, status int, message string, fields []string) error {
	return c.JSON(status, echo.Map{
		"success": false,
		"message": message,
		"fields":  fields,
	})
}
