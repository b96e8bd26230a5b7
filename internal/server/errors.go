package server

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/teemow/calmate/internal/apperror"
	"github.com/teemow/calmate/internal/logging"
)

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// writeError renders err with the status of its kind. Causes of upstream
// failures are logged, not returned.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	kind := apperror.KindOf(err)
	message := err.Error()

	if kind == apperror.KindUpstream {
		logger.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String(logging.KeyRequestID, c.GetString(logging.KeyRequestID)),
			logging.Err(err))

		message = "upstream service failure"
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Message != "" {
			message = appErr.Message
		}
	}

	c.AbortWithStatusJSON(apperror.HTTPStatus(kind), ErrorResponse{Error: message, Kind: string(kind)})
}
