package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/cubescan/internal/cube"
	"github.com/example/cubescan/internal/facestore"
	"github.com/example/cubescan/internal/imagesource"
	"github.com/example/cubescan/internal/solver"
	"github.com/example/cubescan/internal/usecase"
)

// respondError maps domain errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *solver.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":     false,
			"error":  "invalid cube state",
			"detail": verr.Error(),
			"length": verr.Length,
			"counts": verr.Counts,
		})
	case errors.Is(err, usecase.ErrInvalidInput):
		writeError(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, imagesource.ErrDecode):
		writeError(c, http.StatusBadRequest, "invalid image", err)
	case errors.Is(err, facestore.ErrFaceIndex):
		writeError(c, http.StatusBadRequest, "invalid face index", err)
	case errors.Is(err, cube.ErrIncomplete), errors.Is(err, cube.ErrInconsistent):
		writeError(c, http.StatusBadRequest, "cannot assemble cube", err)
	case errors.Is(err, solver.ErrInvalidState):
		writeError(c, http.StatusBadRequest, "invalid cube state", err)
	case errors.Is(err, facestore.ErrSessionNotFound):
		writeError(c, http.StatusNotFound, "session not found", nil)
	case errors.Is(err, usecase.ErrNotFound):
		writeError(c, http.StatusNotFound, "solve not found", nil)
	case errors.Is(err, usecase.ErrHistoryDisabled):
		writeError(c, http.StatusServiceUnavailable, "history disabled", nil)
	case errors.Is(err, solver.ErrSolverUnavailable):
		writeError(c, http.StatusServiceUnavailable, "solver unavailable", err)
	case errors.Is(err, solver.ErrSolver):
		writeError(c, http.StatusInternalServerError, "solver failed", err)
	default:
		writeError(c, http.StatusInternalServerError, "internal error", nil)
	}
}

func writeError(c *gin.Context, status int, message string, detail error) {
	body := gin.H{"ok": false, "error": message}
	if detail != nil {
		body["detail"] = detail.Error()
	}
	c.AbortWithStatusJSON(status, body)
}
