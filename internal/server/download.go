package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPDownloader fetches chapter source PDFs from the configured upstream,
// laid out as <base>/class_<level>/<chapterID>.pdf.
type HTTPDownloader struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPDownloader(baseURL string) *HTTPDownloader {
	return &HTTPDownloader{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  http.DefaultClient,
	}
}

func (d *HTTPDownloader) FetchChapter(ctx context.Context, classLevel int, chapterID string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s/class_%d/%s.pdf", d.BaseURL, classLevel, chapterID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
