package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type (
	response struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}

	errorResponse struct {
		Success bool              `json:"success"`
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	}
)

func ok(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusOK, response{Success: true, Data: data})
}

func created(ctx echo.Context, data interface{}) error {
	return ctx.JSON(http.StatusCreated, response{Success: true, Data: data})
}
