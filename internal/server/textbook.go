package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/mahfuz-oronno/pathshala/internal/curriculum"
	"github.com/mahfuz-oronno/pathshala/internal/generate"
	"github.com/mahfuz-oronno/pathshala/internal/retrieval"
	"github.com/mahfuz-oronno/pathshala/internal/store"
)

// Ingester accepts an uploaded chapter PDF into the vector index.
type Ingester interface {
	Ingest(ctx context.Context, r io.ReaderAt, size int64, id store.DocumentIdentity) (store.ChapterDocument, error)
}

// Generator produces answers, summaries, quizzes and search results.
type Generator interface {
	AnswerQuestion(ctx context.Context, question string, scope retrieval.Scope) (generate.Answer, error)
	SummarizeChapter(ctx context.Context, scope retrieval.Scope) (generate.Summary, error)
	GenerateQuiz(ctx context.Context, scope retrieval.Scope, mcqCount, shortCount int) (generate.Quiz, error)
	SearchContent(ctx context.Context, query string, scope retrieval.Scope, topK int) ([]store.ChunkSearchResult, error)
}

// TextbookHandler exposes the ingestion and generation endpoints.
type TextbookHandler struct {
	Pipeline Ingester
	Gen      Generator
}

func (h *TextbookHandler) Register(e *echo.Echo) {
	e.GET("/", h.status)
	e.POST("/upload-textbook", h.upload)
	e.POST("/ask-question", h.ask)
	e.POST("/search-content", h.search)
	e.POST("/generate-summary", h.summary)
	e.POST("/generate-quiz", h.quiz)
	e.GET("/list-subjects", h.listSubjects)
}

func (h *TextbookHandler) status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"service":     "pathshala",
		"status":      "running",
		"initialized": h.Pipeline != nil && h.Gen != nil,
	})
}

func (h *TextbookHandler) upload(c echo.Context) error {
	classLevel, err := formInt(c, "class_level")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	subject := strings.TrimSpace(c.FormValue("subject"))
	if subject == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "subject required")
	}
	// The chapter is validated separately: uploads may introduce chapters
	// the static curriculum does not list yet.
	if err := curriculum.Validate(classLevel, subject, ""); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file required")
	}

	chapterName := strings.TrimSpace(c.FormValue("chapter_name"))
	chapterID := resolveChapterID(classLevel, subject, chapterName, fh.Filename)
	if chapterID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chapter could not be determined from chapter_name or filename")
	}

	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id := store.DocumentIdentity{ClassLevel: classLevel, Subject: subject, ChapterID: chapterID}
	doc, err := h.Pipeline.Ingest(c.Request().Context(), bytes.NewReader(data), int64(len(data)), id)
	uploadsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "success",
		"class_level": doc.Identity.ClassLevel,
		"subject":     doc.Identity.Subject,
		"chapter":     doc.Identity.ChapterID,
		"chunk_count": doc.ChunkCount,
	})
}

type scopedRequest struct {
	ClassLevel int    `json:"class_level"`
	Subject    string `json:"subject"`
	Chapter    string `json:"chapter"`
}

func (r scopedRequest) scope() retrieval.Scope {
	return retrieval.Scope{ClassLevel: r.ClassLevel, Subject: r.Subject, ChapterID: r.Chapter}
}

func (h *TextbookHandler) ask(c echo.Context) error {
	var req struct {
		scopedRequest
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}
	ans, err := h.Gen.AnswerQuestion(c.Request().Context(), req.Question, req.scope())
	questionsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ans)
}

func (h *TextbookHandler) search(c echo.Context) error {
	var req struct {
		scopedRequest
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	results, err := h.Gen.SearchContent(c.Request().Context(), req.Query, req.scope(), req.TopK)
	if err != nil {
		return httpError(err)
	}
	out := make([]map[string]interface{}, len(results))
	for i, r := range results {
		out[i] = map[string]interface{}{
			"chunk_id":    r.ChunkID(),
			"score":       r.Score,
			"text":        r.Text,
			"class_level": r.Identity.ClassLevel,
			"subject":     r.Identity.Subject,
			"chapter":     r.Identity.ChapterID,
			"chunk_index": r.ChunkIndex,
			"word_count":  r.WordCount,
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"results": out, "count": len(out)})
}

func (h *TextbookHandler) summary(c echo.Context) error {
	var req scopedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	s, err := h.Gen.SummarizeChapter(c.Request().Context(), req.scope())
	generationsTotal.WithLabelValues("summary", outcome(err)).Inc()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *TextbookHandler) quiz(c echo.Context) error {
	var req struct {
		scopedRequest
		MCQCount   *int `json:"mcq_count"`
		ShortCount *int `json:"short_count"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	mcq, short := 5, 2
	if req.MCQCount != nil {
		mcq = *req.MCQCount
	}
	if req.ShortCount != nil {
		short = *req.ShortCount
	}
	quiz, err := h.Gen.GenerateQuiz(c.Request().Context(), req.scope(), mcq, short)
	generationsTotal.WithLabelValues("quiz", outcome(err)).Inc()
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, quiz)
}

func (h *TextbookHandler) listSubjects(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"class_levels": curriculum.ClassLevels(),
		"structure":    curriculum.Structure(),
	})
}

// resolveChapterID prefers a curriculum match on the chapter name, then
// falls back to slugging the name or the upload's file name.
func resolveChapterID(classLevel int, subject, chapterName, filename string) string {
	if chapterName != "" {
		if ch, ok := curriculum.FindChapter(classLevel, subject, chapterName); ok {
			return ch.ID
		}
		return slug(chapterName)
	}
	base := filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return slug(base)
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func formInt(c echo.Context, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.FormValue(field)))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", field)
	}
	return n, nil
}
