package docreader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/brunobiangulo/docreader/chunker"
	"github.com/brunobiangulo/docreader/parser"
	"github.com/brunobiangulo/docreader/store"
)

// toolchainer is implemented by parsers whose output depends on which
// external tools are installed.
type toolchainer interface {
	Toolchain(opts parser.Options) map[string]string
}

// cacheKey identifies a read by content, resolved format, effective
// options and the external tools the parser would use. json.Marshal sorts
// map keys, so equal inputs give equal keys.
func cacheKey(hash, format string, opts parser.Options, tools map[string]string) string {
	o, _ := json.Marshal(opts)
	tc, _ := json.Marshal(tools)
	h := sha256.New()
	h.Write([]byte(hash))
	h.Write([]byte{0})
	h.Write([]byte(format))
	h.Write([]byte{0})
	h.Write(o)
	h.Write([]byte{0})
	h.Write(tc)
	return hex.EncodeToString(h.Sum(nil))
}

// cacheable reports whether a result may be reused. An exhausted .doc is
// not: a failing tool may work on the next call without its path changing.
func cacheable(res *parser.ParseResult) bool {
	return res.Method != "" && res.Method != "exhausted"
}

// lookup fills resp from the cache. Any cache fault is a miss.
func (r *reader) lookup(ctx context.Context, key string, resp *Response, logger *slog.Logger) bool {
	if r.cache == nil {
		return false
	}
	doc, chunks, images, err := r.cache.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("cache: lookup failed", "error", err)
		}
		return false
	}

	var meta map[string]string
	if doc.Metadata != "" {
		if err := json.Unmarshal([]byte(doc.Metadata), &meta); err != nil {
			logger.Warn("cache: bad metadata", "error", err)
			return false
		}
	}

	resp.Method = doc.ParseMethod
	resp.Text = doc.Text
	resp.Metadata = meta
	resp.Chunks = make([]chunker.Chunk, len(chunks))
	for i, c := range chunks {
		resp.Chunks[i] = chunker.Chunk{
			Seq:          c.Seq,
			Content:      c.Content,
			Start:        c.StartOffset,
			End:          c.EndOffset,
			Heading:      c.Heading,
			PageNumber:   c.PageNumber,
			SectionIndex: c.SectionIndex,
			ChunkType:    c.ChunkType,
			TokenCount:   c.TokenCount,
			ContentHash:  c.ContentHash,
		}
	}
	for _, img := range images {
		resp.Images = append(resp.Images, parser.ExtractedImage{
			Data:         img.Data,
			MIMEType:     img.MIMEType,
			PageNumber:   img.PageNumber,
			SectionIndex: img.SectionIndex,
			Width:        img.Width,
			Height:       img.Height,
		})
	}
	resp.Cached = true
	return true
}

// remember stores a fresh result. Failures are logged and otherwise ignored.
func (r *reader) remember(ctx context.Context, key string, resp *Response, logger *slog.Logger) {
	if r.cache == nil {
		return
	}
	doc := store.Document{
		CacheKey:    key,
		ContentHash: resp.ContentHash,
		Filename:    resp.FileName,
		Format:      resp.FileType,
		ParseMethod: resp.Method,
		Text:        resp.Text,
	}
	if len(resp.Metadata) > 0 {
		meta, err := json.Marshal(resp.Metadata)
		if err != nil {
			logger.Warn("cache: encoding metadata failed", "error", err)
			return
		}
		doc.Metadata = string(meta)
	}

	chunks := make([]store.Chunk, len(resp.Chunks))
	for i, c := range resp.Chunks {
		chunks[i] = store.Chunk{
			Seq:          c.Seq,
			Content:      c.Content,
			StartOffset:  c.Start,
			EndOffset:    c.End,
			Heading:      c.Heading,
			PageNumber:   c.PageNumber,
			SectionIndex: c.SectionIndex,
			ChunkType:    c.ChunkType,
			TokenCount:   c.TokenCount,
			ContentHash:  c.ContentHash,
		}
	}
	images := make([]store.Image, len(resp.Images))
	for i, img := range resp.Images {
		images[i] = store.Image{
			MIMEType:     img.MIMEType,
			PageNumber:   img.PageNumber,
			SectionIndex: img.SectionIndex,
			Width:        img.Width,
			Height:       img.Height,
			Data:         img.Data,
		}
	}

	if _, err := r.cache.Put(ctx, doc, chunks, images); err != nil {
		logger.Warn("cache: storing result failed", "error", err)
	}
}
