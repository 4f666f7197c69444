//go:build cgo

package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDoc(key string) Document {
	return Document{
		CacheKey:    key,
		ContentHash: "abc123",
		Filename:    "memo.doc",
		Format:      "doc",
		ParseMethod: "antiword",
		Text:        "Hello world",
		Metadata:    `{"attempts":"antiword=ok"}`,
	}
}

func sampleChunks() []Chunk {
	return []Chunk{
		{Seq: 1, Content: "world", StartOffset: 6, EndOffset: 11, SectionIndex: -1, ChunkType: "paragraph", TokenCount: 2, ContentHash: "h2"},
		{Seq: 0, Content: "Hello", StartOffset: 0, EndOffset: 5, Heading: "Greeting", SectionIndex: 0, ChunkType: "section", TokenCount: 2, ContentHash: "h1"},
	}
}

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "cache.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, sampleDoc("k1"), nil, nil); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := New(dbPath)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, "k1"); err != nil {
		t.Errorf("Get after reopen: %v", err)
	}
}

func TestPutAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	img := Image{MIMEType: "image/png", PageNumber: 2, SectionIndex: 1, Width: 64, Height: 48, Data: []byte{0x89, 'P', 'N', 'G'}}
	id, err := s.Put(ctx, sampleDoc("k1"), sampleChunks(), []Image{img})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero document id")
	}

	doc, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc.ID != id || doc.Text != "Hello world" || doc.ParseMethod != "antiword" || doc.Filename != "memo.doc" {
		t.Errorf("document = %+v", doc)
	}
	if doc.Metadata != `{"attempts":"antiword=ok"}` {
		t.Errorf("metadata = %q", doc.Metadata)
	}
	if doc.CreatedAt == "" {
		t.Error("expected created_at to be set")
	}

	chunks, err := s.GetChunks(ctx, id)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Seq != 0 || chunks[0].Heading != "Greeting" || chunks[1].Seq != 1 || chunks[1].SectionIndex != -1 {
		t.Errorf("chunks not in sequence order: %+v", chunks)
	}
	if chunks[1].StartOffset != 6 || chunks[1].EndOffset != 11 {
		t.Errorf("offsets = %d..%d", chunks[1].StartOffset, chunks[1].EndOffset)
	}

	images, err := s.GetImages(ctx, id)
	if err != nil {
		t.Fatalf("GetImages: %v", err)
	}
	if len(images) != 1 || !bytes.Equal(images[0].Data, img.Data) || images[0].Width != 64 || images[0].SectionIndex != 1 {
		t.Errorf("images = %+v", images)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPutReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Put(ctx, sampleDoc("k1"), sampleChunks(), nil)
	if err != nil {
		t.Fatal(err)
	}
	doc := sampleDoc("k1")
	doc.Text = "replaced"
	second, err := s.Put(ctx, doc, []Chunk{{Seq: 0, Content: "replaced", ChunkType: "paragraph", ContentHash: "h"}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if second == first {
		t.Fatalf("replacement reused document id %d", first)
	}

	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != second || got.Text != "replaced" {
		t.Errorf("document = %+v", got)
	}
	old, err := s.GetChunks(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(old) != 0 {
		t.Errorf("chunks of replaced document survived: %d", len(old))
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Put(ctx, sampleDoc("k1"), sampleChunks(), []Image{{MIMEType: "image/png", Data: []byte{1}}})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, table := range []string{"chunks", "images"} {
		var n int
		if err := s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE document_id = ?", id).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s rows left after delete: %d", table, n)
		}
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b"} {
		if _, err := s.Put(ctx, sampleDoc(key), nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Prune(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d fresh entries", n)
	}

	n, err = s.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d entries, want 2", n)
	}
	if c, _ := s.Count(ctx); c != 0 {
		t.Errorf("Count = %d after prune", c)
	}
}

func TestLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, _, _, err := s.Load(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load on empty cache: err = %v, want ErrNotFound", err)
	}

	s.Put(ctx, sampleDoc("k1"), sampleChunks(), nil)
	doc := sampleDoc("k1")
	doc.Text = "replaced"
	id, err := s.Put(ctx, doc, []Chunk{{Seq: 0, Content: "replaced", ChunkType: "paragraph", ContentHash: "h"}},
		[]Image{{MIMEType: "image/png", Data: []byte{7}}})
	if err != nil {
		t.Fatal(err)
	}

	got, chunks, images, err := s.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != id || got.Text != "replaced" {
		t.Errorf("document = %+v", got)
	}
	if len(chunks) != 1 || chunks[0].Content != "replaced" || chunks[0].DocumentID != id {
		t.Errorf("chunks = %+v", chunks)
	}
	if len(images) != 1 || images[0].DocumentID != id {
		t.Errorf("images = %+v", images)
	}
}

func TestMigrateRebuildsVersionTwoCache(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	// A cache written before document ids were made non-reusable.
	old, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE documents (id INTEGER PRIMARY KEY, cache_key TEXT NOT NULL UNIQUE, content_hash TEXT NOT NULL,
			filename TEXT, format TEXT NOT NULL, parse_method TEXT NOT NULL, text TEXT NOT NULL, metadata JSON,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE schema_version (version INTEGER PRIMARY KEY, description TEXT, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`INSERT INTO schema_version (version) VALUES (1), (2)`,
		`INSERT INTO documents (cache_key, content_hash, format, parse_method, text) VALUES ('k1', 'h', 'doc', 'antiword', 'old')`,
	} {
		if _, err := old.Exec(stmt); err != nil {
			t.Fatalf("seeding %q: %v", stmt, err)
		}
	}
	old.Close()

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if v, _ := s.SchemaVersion(ctx); v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}
	var ddl string
	if err := s.DB().QueryRowContext(ctx, "SELECT sql FROM sqlite_master WHERE name = 'documents'").Scan(&ddl); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ddl, "AUTOINCREMENT") {
		t.Errorf("documents table not rebuilt: %s", ddl)
	}

	first, err := s.Put(ctx, sampleDoc("k1"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Put(ctx, sampleDoc("k1"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second <= first {
		t.Errorf("ids %d then %d, want increasing", first, second)
	}
}
