package docreader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// FetchConfig controls how ReadURL downloads documents.
type FetchConfig struct {
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count"`
	UserAgent  string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
}

func newHTTPClient(cfg FetchConfig) *resty.Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return client
}

func (r *reader) ReadURL(ctx context.Context, rawURL string, opts ...ReadOption) (Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Response{}, fmt.Errorf("%w: unsupported scheme %q", ErrFetchFailed, u.Scheme)
	}

	res, err := r.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() >= 400 {
		return Response{}, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, u.Redacted(), res.Status())
	}

	var src io.Reader = body
	if r.cfg.MaxFileSize > 0 {
		src = io.LimitReader(body, r.cfg.MaxFileSize+1)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return Response{}, fmt.Errorf("%w: reading body: %v", ErrFetchFailed, err)
	}
	if r.cfg.MaxFileSize > 0 && int64(len(content)) > r.cfg.MaxFileSize {
		return Response{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrFileTooLarge, u.Redacted(), r.cfg.MaxFileSize)
	}

	req := Request{
		FileName: remoteName(u, res.Header().Get("Content-Disposition")),
		Content:  content,
	}
	if ct := res.Header().Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/octet-stream") {
		req.FileType = normalizeFormat(ct)
	}
	for _, o := range opts {
		o(&req)
	}
	r.logger.Debug("fetch: downloaded document", "url", u.Redacted(), "bytes", len(content), "file_type", req.FileType)
	return r.Read(ctx, req), nil
}

// remoteName prefers the Content-Disposition filename over the last URL
// path segment.
func remoteName(u *url.URL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return path.Base(strings.ReplaceAll(params["filename"], "\\", "/"))
		}
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	return base
}
