package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mahfuz-oronno/pathshala/internal/generate"
	"github.com/mahfuz-oronno/pathshala/internal/retrieval"
	"github.com/mahfuz-oronno/pathshala/internal/store"
)

type stubIngester struct {
	lastID store.DocumentIdentity
	doc    store.ChapterDocument
	err    error
}

func (s *stubIngester) Ingest(ctx context.Context, r io.ReaderAt, size int64, id store.DocumentIdentity) (store.ChapterDocument, error) {
	s.lastID = id
	if s.err != nil {
		return store.ChapterDocument{}, s.err
	}
	doc := s.doc
	doc.Identity = id
	return doc, nil
}

type stubGenerator struct {
	answer    generate.Answer
	answerErr error
	summary   generate.Summary
	quiz      generate.Quiz
	results   []store.ChunkSearchResult

	lastScope retrieval.Scope
	lastMCQ   int
	lastShort int
}

func (s *stubGenerator) AnswerQuestion(ctx context.Context, question string, scope retrieval.Scope) (generate.Answer, error) {
	s.lastScope = scope
	return s.answer, s.answerErr
}

func (s *stubGenerator) SummarizeChapter(ctx context.Context, scope retrieval.Scope) (generate.Summary, error) {
	s.lastScope = scope
	return s.summary, nil
}

func (s *stubGenerator) GenerateQuiz(ctx context.Context, scope retrieval.Scope, mcqCount, shortCount int) (generate.Quiz, error) {
	s.lastScope = scope
	s.lastMCQ = mcqCount
	s.lastShort = shortCount
	return s.quiz, nil
}

func (s *stubGenerator) SearchContent(ctx context.Context, query string, scope retrieval.Scope, topK int) ([]store.ChunkSearchResult, error) {
	s.lastScope = scope
	return s.results, nil
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload-textbook", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func TestUploadTextbook(t *testing.T) {
	e := echo.New()
	ing := &stubIngester{doc: store.ChapterDocument{ChunkCount: 12}}
	handler := &TextbookHandler{Pipeline: ing, Gen: &stubGenerator{}}

	req, rec := multipartUpload(t, map[string]string{
		"class_level":  "9",
		"subject":      "physics",
		"chapter_name": "Motion",
	}, "motion.pdf", []byte("%PDF-1.4 fake"))
	ctx := e.NewContext(req, rec)

	if err := handler.upload(ctx); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ing.lastID.ClassLevel != 9 || ing.lastID.Subject != "physics" {
		t.Fatalf("identity = %+v", ing.lastID)
	}
	if ing.lastID.ChapterID != "motion" {
		t.Fatalf("chapter id = %q, want curriculum-resolved motion", ing.lastID.ChapterID)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["chunk_count"].(float64) != 12 {
		t.Fatalf("chunk_count = %v", resp["chunk_count"])
	}
}

func TestUploadChapterFromFilename(t *testing.T) {
	e := echo.New()
	ing := &stubIngester{}
	handler := &TextbookHandler{Pipeline: ing, Gen: &stubGenerator{}}

	req, rec := multipartUpload(t, map[string]string{
		"class_level": "10",
		"subject":     "chemistry",
	}, "Chemical Reactions.pdf", []byte("%PDF-1.4 fake"))
	ctx := e.NewContext(req, rec)

	if err := handler.upload(ctx); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ing.lastID.ChapterID != "chemical_reactions" {
		t.Fatalf("chapter id = %q", ing.lastID.ChapterID)
	}
}

func TestUploadValidation(t *testing.T) {
	e := echo.New()
	handler := &TextbookHandler{Pipeline: &stubIngester{}, Gen: &stubGenerator{}}

	req, rec := multipartUpload(t, map[string]string{"subject": "physics"}, "x.pdf", []byte("x"))
	err := handler.upload(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing class_level, got %#v", err)
	}

	req, rec = multipartUpload(t, map[string]string{"class_level": "9", "subject": "astrology"}, "x.pdf", []byte("x"))
	err = handler.upload(e.NewContext(req, rec))
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown subject, got %#v", err)
	}

	req, rec = multipartUpload(t, map[string]string{"class_level": "9", "subject": "physics"}, "", nil)
	err = handler.upload(e.NewContext(req, rec))
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %#v", err)
	}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestAskQuestion(t *testing.T) {
	e := echo.New()
	gen := &stubGenerator{answer: generate.Answer{Answer: "Velocity is directed speed.", Confidence: 0.8}}
	handler := &TextbookHandler{Pipeline: &stubIngester{}, Gen: gen}

	req := jsonRequest(http.MethodPost, "/ask-question", `{"question":"What is velocity?","class_level":9,"subject":"physics","chapter":"motion"}`)
	rec := httptest.NewRecorder()
	if err := handler.ask(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gen.lastScope != (retrieval.Scope{ClassLevel: 9, Subject: "physics", ChapterID: "motion"}) {
		t.Fatalf("scope = %+v", gen.lastScope)
	}
	var resp generate.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "Velocity is directed speed." || resp.Confidence != 0.8 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestAskQuestionNoContentIs404(t *testing.T) {
	e := echo.New()
	scope := retrieval.Scope{ClassLevel: 9, Subject: "physics", ChapterID: "motion"}
	gen := &stubGenerator{answerErr: &generate.NoContentError{Scope: scope}}
	handler := &TextbookHandler{Pipeline: &stubIngester{}, Gen: gen}

	req := jsonRequest(http.MethodPost, "/ask-question", `{"question":"q","class_level":9,"subject":"physics","chapter":"motion"}`)
	rec := httptest.NewRecorder()
	err := handler.ask(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %#v", err)
	}
}

func TestSearchContent(t *testing.T) {
	e := echo.New()
	gen := &stubGenerator{results: []store.ChunkSearchResult{{
		Identity:   store.DocumentIdentity{ClassLevel: 9, Subject: "physics", ChapterID: "motion"},
		ChunkIndex: 2,
		Text:       "Acceleration is the rate of change of velocity.",
		WordCount:  8,
		Score:      0.91,
	}}}
	handler := &TextbookHandler{Pipeline: &stubIngester{}, Gen: gen}

	req := jsonRequest(http.MethodPost, "/search-content", `{"query":"acceleration","class_level":9,"subject":"physics","top_k":5}`)
	rec := httptest.NewRecorder()
	if err := handler.search(e.NewContext(req, rec)); err != nil {
		t.Fatalf("search: %v", err)
	}
	var resp struct {
		Results []map[string]interface{} `json:"results"`
		Count   int                      `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Fatalf("count = %d", resp.Count)
	}
	if resp.Results[0]["chunk_id"] != "9-physics-motion-002" {
		t.Fatalf("chunk_id = %v", resp.Results[0]["chunk_id"])
	}
}

func TestGenerateQuizDefaults(t *testing.T) {
	e := echo.New()
	gen := &stubGenerator{}
	handler := &TextbookHandler{Pipeline: &stubIngester{}, Gen: gen}

	req := jsonRequest(http.MethodPost, "/generate-quiz", `{"class_level":9,"subject":"physics","chapter":"motion"}`)
	rec := httptest.NewRecorder()
	if err := handler.quiz(e.NewContext(req, rec)); err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if gen.lastMCQ != 5 || gen.lastShort != 2 {
		t.Fatalf("counts = %d/%d, want defaults 5/2", gen.lastMCQ, gen.lastShort)
	}

	req = jsonRequest(http.MethodPost, "/generate-quiz", `{"class_level":9,"subject":"physics","chapter":"motion","mcq_count":3,"short_count":0}`)
	rec = httptest.NewRecorder()
	if err := handler.quiz(e.NewContext(req, rec)); err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if gen.lastMCQ != 3 || gen.lastShort != 0 {
		t.Fatalf("counts = %d/%d, want 3/0", gen.lastMCQ, gen.lastShort)
	}
}

func TestListSubjects(t *testing.T) {
	e := echo.New()
	handler := &TextbookHandler{Pipeline: &stubIngester{}, Gen: &stubGenerator{}}

	req := httptest.NewRequest(http.MethodGet, "/list-subjects", nil)
	rec := httptest.NewRecorder()
	if err := handler.listSubjects(e.NewContext(req, rec)); err != nil {
		t.Fatalf("listSubjects: %v", err)
	}
	var resp struct {
		ClassLevels []int                             `json:"class_levels"`
		Structure   map[string]map[string]interface{} `json:"structure"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.ClassLevels) == 0 {
		t.Fatal("no class levels listed")
	}
	if _, ok := resp.Structure["9"]; !ok {
		t.Fatal("class 9 missing from structure")
	}
}
