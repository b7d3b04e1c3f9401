package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"pixelpaws-server/internal/metrics"
	"pixelpaws-server/internal/middleware"
	"pixelpaws-server/internal/model"
	"pixelpaws-server/internal/store"
)

type CatHandler struct {
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type catSummary struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type manifestFiles struct {
	Idle    *string `json:"idle"`
	Walk    *string `json:"walk"`
	Run     *string `json:"run"`
	Lifted  *string `json:"lifted"`
	Attack  *string `json:"attack"`
	Sit     *string `json:"sit"`
	Liedown *string `json:"liedown"`
	Jump    *string `json:"jump"`
	Land    *string `json:"land"`
}

type manifestResponse struct {
	BaseURL string        `json:"baseUrl"`
	Version string        `json:"version"`
	Files   manifestFiles `json:"files"`
}

func newManifest(cat *model.Cat) manifestResponse {
	return manifestResponse{
		BaseURL: cat.BaseURL,
		Version: cat.Version,
		Files: manifestFiles{
			Idle:    cat.Idle,
			Walk:    cat.Walk,
			Run:     cat.Run,
			Lifted:  cat.Lifted,
			Attack:  cat.Attack,
			Sit:     cat.Sit,
			Liedown: cat.Liedown,
			Jump:    cat.Jump,
			Land:    cat.Land,
		},
	}
}

func (h *CatHandler) List(c *gin.Context) {
	cats, err := h.Store.Cats().List(c.Request.Context())
	if err != nil {
		internalError(c, h.Logger, "list cats failed", err)
		return
	}

	resp := make([]catSummary, 0, len(cats))
	for _, cat := range cats {
		resp = append(resp, catSummary{ID: cat.ID, Version: cat.Version})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CatHandler) Manifest(c *gin.Context) {
	catID := c.Param("catId")

	cat, err := h.Store.Cats().Get(c.Request.Context(), catID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			h.Metrics.ManifestLookupsTotal.WithLabelValues("not_found").Inc()
			c.JSON(http.StatusNotFound, gin.H{"error": "cat not found"})
			return
		}
		h.Metrics.ManifestLookupsTotal.WithLabelValues("error").Inc()
		internalError(c, h.Logger, "manifest lookup failed", err, "cat_id", catID)
		return
	}

	h.Metrics.ManifestLookupsTotal.WithLabelValues("found").Inc()
	c.JSON(http.StatusOK, newManifest(cat))
}

func internalError(c *gin.Context, logger *slog.Logger, msg string, err error, args ...any) {
	args = append(args, "error", err, "request_id", middleware.RequestIDFromContext(c))
	logger.ErrorContext(c.Request.Context(), msg, args...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
