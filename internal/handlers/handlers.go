// Package handlers exposes the scan and solve workflows over HTTP.
package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/cubescan/internal/auth"
	"github.com/example/cubescan/internal/usecase"
)

// DefaultMaxBodyBytes caps JSON request bodies when no limit is configured.
const DefaultMaxBodyBytes = 10 << 20

// Options configures the routes.
type Options struct {
	MaxBodyBytes int64
}

type api struct {
	uc           *usecase.CubeUseCase
	tokens       *auth.Tokens
	maxBodyBytes int64
}

type scanRequest struct {
	SessionID string `json:"session_id"`
	FaceIndex int    `json:"face_index"`
	Image     string `json:"image"`
}

type solveRequest struct {
	FaceletString string `json:"facelet_string"`
	SessionID     string `json:"session_id"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. tokens may be
// nil, which leaves the session routes open.
func RegisterRoutes(router *gin.Engine, uc *usecase.CubeUseCase, tokens *auth.Tokens, opts Options) {
	a := &api{uc: uc, tokens: tokens, maxBodyBytes: opts.MaxBodyBytes}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = DefaultMaxBodyBytes
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	apiGroup.POST("/sessions", a.createSession)
	apiGroup.GET("/solves/:id", a.getSolve)
	apiGroup.GET("/metrics", a.metrics)

	sessions := apiGroup.Group("", tokens.Middleware())
	sessions.POST("/scan", a.scan)
	sessions.GET("/sessions/:id/faces", a.faces)
	sessions.GET("/sessions/:id/facelets", a.facelets)
	sessions.DELETE("/sessions/:id", a.deleteSession)

	// A solve request only needs a token when it names a session.
	apiGroup.POST("/solve", a.solve)
}

func (a *api) createSession(c *gin.Context) {
	sessionID := a.uc.NewSessionID()
	resp := gin.H{
		"ok":         true,
		"session_id": sessionID,
		"expires_in": int64(a.uc.SessionTTL().Seconds()),
	}
	if a.tokens.Enabled() {
		token, err := a.tokens.Issue(sessionID, a.uc.SessionTTL())
		if err != nil {
			writeError(c, http.StatusInternalServerError, "failed to issue token", err)
			return
		}
		resp["token"] = token
	}
	c.JSON(http.StatusCreated, resp)
}

func (a *api) scan(c *gin.Context) {
	var req scanRequest
	if !a.bindJSON(c, &req) {
		return
	}
	if req.SessionID != "" && !a.tokens.Authorize(c, req.SessionID) {
		return
	}

	res, err := a.uc.ScanFace(c.Request.Context(), usecase.ScanInput{
		SessionID: req.SessionID,
		FaceIndex: req.FaceIndex,
		Image:     req.Image,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	confidence := make([]float64, len(res.Scan.Stickers))
	for i, s := range res.Scan.Stickers {
		confidence[i] = s.Confidence
	}
	low := res.LowConfidence
	if low == nil {
		low = []int{}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"request_id":     res.RequestID,
		"face_index":     res.FaceIndex,
		"colors":         res.Scan.Grid,
		"grid":           res.Scan.Grid.Rows(),
		"center":         res.Scan.Grid.Center(),
		"confidence":     confidence,
		"low_confidence": low,
		"strategy":       res.Scan.Strategy,
		"message":        res.Message,
	})
}

func (a *api) faces(c *gin.Context) {
	sessionID := c.Param("id")
	if !a.tokens.Authorize(c, sessionID) {
		return
	}
	state, err := a.uc.Faces(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	missing := state.Missing()
	if missing == nil {
		missing = []int{}
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"session_id": sessionID,
		"faces":      state,
		"complete":   len(missing) == 0,
		"missing":    missing,
	})
}

func (a *api) facelets(c *gin.Context) {
	sessionID := c.Param("id")
	if !a.tokens.Authorize(c, sessionID) {
		return
	}
	facelets, err := a.uc.Facelets(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "session_id": sessionID, "facelet_string": facelets})
}

func (a *api) deleteSession(c *gin.Context) {
	sessionID := c.Param("id")
	if !a.tokens.Authorize(c, sessionID) {
		return
	}
	if err := a.uc.EndSession(c.Request.Context(), sessionID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *api) solve(c *gin.Context) {
	var req solveRequest
	if !a.bindJSON(c, &req) {
		return
	}
	if req.SessionID != "" && !a.tokens.Authorize(c, req.SessionID) {
		return
	}

	res, err := a.uc.Solve(c.Request.Context(), usecase.SolveInput{
		Facelets:  req.FaceletString,
		SessionID: req.SessionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":             true,
		"request_id":     res.RequestID,
		"facelet_string": res.Facelets,
		"solution":       res.Solution,
		"moves":          res.Moves,
		"cached":         res.Cached,
	})
}

func (a *api) getSolve(c *gin.Context) {
	record, err := a.uc.GetSolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "solve": record})
}

func (a *api) metrics(c *gin.Context) {
	summary, err := a.uc.GetMetricsSummary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "metrics": summary})
}

// bindJSON enforces the content type and body limit, then decodes the body.
func (a *api) bindJSON(c *gin.Context, dst interface{}) bool {
	if ct := c.GetHeader("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.EqualFold(mediaType, "application/json") {
			writeError(c, http.StatusUnsupportedMediaType, "content type must be application/json", nil)
			return false
		}
	}
	if c.Request.ContentLength > a.maxBodyBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxBodyBytes)

	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		}
		writeError(c, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	return true
}
