package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github/itish2003/notehub/models"
	"github/itish2003/notehub/services"
)

// ErrorBoundary turns errors recorded with ctx.Error into a response when
// the handler wrote nothing. JSON routes get an ErrorResponse; pages get
// error.html with a retry link back to the same URL.
func (c *NotesController) ErrorBoundary() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if len(ctx.Errors) == 0 || ctx.Writer.Written() {
			return
		}
		err := ctx.Errors.Last().Err
		status := errorStatus(err)
		c.logger.Error("request failed",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", status,
			"error", err)

		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			ctx.JSON(status, models.ErrorResponse{Error: http.StatusText(status)})
			return
		}
		c.html(ctx, status, "error.html", errorPageData{
			Message: "The notes could not be loaded. Please try again.",
			Retry:   ctx.Request.URL.RequestURI(),
		})
	}
}

// errorStatus maps a backend failure to 502 and anything else to 500.
func errorStatus(err error) int {
	var apiErr *services.APIError
	var urlErr *url.Error
	if errors.As(err, &apiErr) || errors.As(err, &urlErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// CORS allows browser clients on other origins to call the JSON routes.
func CORS() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Access-Control-Allow-Origin", "*")
		ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()
		logger.Debug("request",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status())
	}
}
