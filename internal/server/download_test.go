package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPDownloaderFetchChapter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/class_9/motion.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4 motion"))
	}))
	defer srv.Close()

	d := NewHTTPDownloader(srv.URL + "/books/")
	rc, err := d.FetchChapter(context.Background(), 9, "motion")
	if err != nil {
		t.Fatalf("FetchChapter: %v", err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "%PDF-1.4 motion" {
		t.Fatalf("body = %q", body)
	}

	if _, err := d.FetchChapter(context.Background(), 9, "missing"); err == nil {
		t.Fatal("expected error for missing chapter")
	}
}
