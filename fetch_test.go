package docreader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newFileServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/files/notes.txt", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("fetched over http"))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="memo.doc"`)
		w.Write(legacyDoc())
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestReadURL(t *testing.T) {
	srv := newFileServer(t)
	r := newTestReader(t, func(c *Config) { c.Fetch.RetryCount = 0 })

	resp, err := r.ReadURL(context.Background(), srv.URL+"/files/notes.txt")
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	if resp.Err != nil || resp.Text != "fetched over http" || resp.FileName != "notes.txt" || resp.FileType != "txt" {
		t.Errorf("response = %+v", resp)
	}

	doc, err := r.ReadURL(context.Background(), srv.URL+"/download", WithRequestID("dl-1"))
	if err != nil {
		t.Fatalf("ReadURL: %v", err)
	}
	if doc.FileName != "memo.doc" || doc.FileType != "doc" || doc.Text != memo || doc.RequestID != "dl-1" {
		t.Errorf("response = %+v", doc)
	}
}

func TestReadURLErrors(t *testing.T) {
	srv := newFileServer(t)
	r := newTestReader(t, func(c *Config) {
		c.Fetch.RetryCount = 0
		c.MaxFileSize = 1024
	})

	tests := []struct {
		name string
		url  string
		want error
	}{
		{"not found", srv.URL + "/missing", ErrFetchFailed},
		{"scheme", "file:///etc/passwd", ErrFetchFailed},
		{"too large", srv.URL + "/big", ErrFileTooLarge},
		{"unreachable", "http://127.0.0.1:1/x", ErrFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ReadURL(context.Background(), tt.url)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemoteName(t *testing.T) {
	tests := []struct {
		url         string
		disposition string
		want        string
	}{
		{"https://example.com/a/b/report.docx", "", "report.docx"},
		{"https://example.com/", "", ""},
		{"https://example.com", "", ""},
		{"https://example.com/get?id=1", `attachment; filename="price list.xlsx"`, "price list.xlsx"},
		{"https://example.com/get", `attachment; filename="..\..\evil.doc"`, "evil.doc"},
		{"https://example.com/x.pdf", "inline", "x.pdf"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		if err != nil {
			t.Fatal(err)
		}
		if got := remoteName(u, tt.disposition); got != tt.want {
			t.Errorf("remoteName(%q, %q) = %q, want %q", tt.url, tt.disposition, got, tt.want)
		}
	}
}
