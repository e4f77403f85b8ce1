package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mahfuz-oronno/pathshala/internal/cache"
	"github.com/mahfuz-oronno/pathshala/internal/curriculum"
)

// CacheHandler exposes admin operations on the local chapter cache.
type CacheHandler struct {
	Manager *cache.Manager
}

func (h *CacheHandler) Register(g *echo.Group) {
	g.GET("/stats", h.stats)
	g.POST("/clear-stale", h.clearStale)
	g.POST("/clear", h.clear)
	g.POST("/preload", h.preload)
}

func (h *CacheHandler) stats(c echo.Context) error {
	stats, err := h.Manager.GetCacheStats()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *CacheHandler) clearStale(c echo.Context) error {
	removed, err := h.Manager.ClearStale(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

func (h *CacheHandler) clear(c echo.Context) error {
	var req struct {
		ClassLevel int `json:"class_level"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var (
		removed int
		err     error
	)
	if req.ClassLevel > 0 {
		removed, err = h.Manager.ClearForClass(c.Request().Context(), req.ClassLevel)
	} else {
		removed, err = h.Manager.ClearAll(c.Request().Context())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

func (h *CacheHandler) preload(c echo.Context) error {
	var req struct {
		ClassLevel int      `json:"class_level"`
		ChapterIDs []string `json:"chapter_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ClassLevel <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "class_level required")
	}
	ids := req.ChapterIDs
	if len(ids) == 0 {
		// No explicit list means the whole class, every subject.
		for _, subject := range curriculum.Subjects(req.ClassLevel) {
			for _, ch := range curriculum.Chapters(req.ClassLevel, subject) {
				ids = append(ids, ch.ID)
			}
		}
	}
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no chapters known for class level")
	}

	results := h.Manager.PreloadChapters(c.Request().Context(), req.ClassLevel, ids)
	succeeded := 0
	for _, ok := range results {
		if ok {
			succeeded++
			cacheDownloadsTotal.WithLabelValues("ok").Inc()
		} else {
			cacheDownloadsTotal.WithLabelValues("error").Inc()
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results":   results,
		"requested": len(ids),
		"succeeded": succeeded,
		"failed":    len(ids) - succeeded,
	})
}
