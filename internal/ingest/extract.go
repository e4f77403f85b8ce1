package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/mahfuz-oronno/pathshala/internal/textnorm"
)

// PageText is the cleaned text of one source page.
type PageText struct {
	PageNumber int
	Text       string
	WordCount  int
}

// ExtractText reads a PDF and returns the cleaned full text plus per-page
// breakdown. Pages that clean down to nothing are skipped.
func ExtractText(r io.ReaderAt, size int64) (string, []PageText, error) {
	reader, err := newPDFReader(r, size)
	if err != nil {
		return "", nil, &ExtractionError{Reason: "unreadable PDF", Err: err}
	}

	var (
		full  strings.Builder
		pages []PageText
	)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		raw, err := pageText(page)
		if err != nil {
			return "", nil, &ExtractionError{Reason: fmt.Sprintf("page %d", pageNum), Err: err}
		}
		cleaned := textnorm.CleanExtractedText(raw)
		if cleaned == "" {
			continue
		}
		pages = append(pages, PageText{
			PageNumber: pageNum,
			Text:       cleaned,
			WordCount:  len(strings.Fields(cleaned)),
		})
		full.WriteString(cleaned)
		full.WriteString("\n\n")
	}
	if len(pages) == 0 {
		return "", nil, &ExtractionError{Reason: "no extractable text"}
	}
	return strings.TrimSpace(full.String()), pages, nil
}

// The pdf reader panics on malformed xref tables rather than returning an
// error, so both entry points trap panics into ExtractionError causes.
func newPDFReader(r io.ReaderAt, size int64) (reader *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed document: %v", rec)
		}
	}()
	return pdf.NewReader(r, size)
}

func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("malformed page content: %v", rec)
		}
	}()
	return page.GetPlainText(nil)
}
