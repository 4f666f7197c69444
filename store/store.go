// Package store caches read results in SQLite so that re-submitting the same
// document with the same options skips parsing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no cached result matches a key.
var ErrNotFound = errors.New("store: not found")

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	CacheKey    string `json:"cache_key"`
	ContentHash string `json:"content_hash"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ParseMethod string `json:"parse_method"`
	Text        string `json:"text"`
	Metadata    string `json:"metadata,omitempty"` // JSON object
	CreatedAt   string `json:"created_at"`
}

// Chunk represents a row in the chunks table.
type Chunk struct {
	ID           int64  `json:"id"`
	DocumentID   int64  `json:"document_id"`
	Seq          int    `json:"seq"`
	Content      string `json:"content"`
	StartOffset  int    `json:"start_offset"`
	EndOffset    int    `json:"end_offset"`
	Heading      string `json:"heading"`
	PageNumber   int    `json:"page_number"`
	SectionIndex int    `json:"section_index"`
	ChunkType    string `json:"chunk_type"`
	TokenCount   int    `json:"token_count"`
	ContentHash  string `json:"content_hash"`
}

// Image represents a row in the images table.
type Image struct {
	ID           int64  `json:"id"`
	DocumentID   int64  `json:"document_id"`
	Position     int    `json:"position"`
	MIMEType     string `json:"mime_type"`
	PageNumber   int    `json:"page_number"`
	SectionIndex int    `json:"section_index"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Data         []byte `json:"-"`
}

// Store wraps the SQLite result cache.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Put stores a result under doc.CacheKey, replacing any previous entry
// with the same key. Returns the document ID.
func (s *Store) Put(ctx context.Context, doc Document, chunks []Chunk, images []Image) (int64, error) {
	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE cache_key = ?", doc.CacheKey); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (cache_key, content_hash, filename, format, parse_method, text, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, doc.CacheKey, doc.ContentHash, doc.Filename, doc.Format, doc.ParseMethod, doc.Text, nullString(doc.Metadata))
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		chunkStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (document_id, seq, content, start_offset, end_offset, heading,
				page_number, section_index, chunk_type, token_count, content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer chunkStmt.Close()
		for _, c := range chunks {
			if _, err := chunkStmt.ExecContext(ctx, id, c.Seq, c.Content, c.StartOffset, c.EndOffset,
				c.Heading, c.PageNumber, c.SectionIndex, c.ChunkType, c.TokenCount, c.ContentHash); err != nil {
				return fmt.Errorf("inserting chunk %d: %w", c.Seq, err)
			}
		}

		for i, img := range images {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO images (document_id, position, mime_type, page_number, section_index, width, height, data)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, id, i, img.MIMEType, img.PageNumber, img.SectionIndex, img.Width, img.Height, img.Data); err != nil {
				return fmt.Errorf("inserting image %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get retrieves a cached document by key. Returns ErrNotFound on a miss.
func (s *Store) Get(ctx context.Context, key string) (*Document, error) {
	return getDocument(ctx, s.db, key)
}

// GetChunks returns a document's chunks in sequence order.
func (s *Store) GetChunks(ctx context.Context, documentID int64) ([]Chunk, error) {
	return getChunks(ctx, s.db, documentID)
}

// GetImages returns a document's images in their original order.
func (s *Store) GetImages(ctx context.Context, documentID int64) ([]Image, error) {
	return getImages(ctx, s.db, documentID)
}

// Load reads a cached document with its chunks and images inside one
// transaction, so a concurrent Put of the same key is seen either entirely
// or not at all. Returns ErrNotFound on a miss.
func (s *Store) Load(ctx context.Context, key string) (*Document, []Chunk, []Image, error) {
	var (
		doc    *Document
		chunks []Chunk
		images []Image
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		if doc, err = getDocument(ctx, tx, key); err != nil {
			return err
		}
		if chunks, err = getChunks(ctx, tx, doc.ID); err != nil {
			return fmt.Errorf("loading chunks: %w", err)
		}
		if images, err = getImages(ctx, tx, doc.ID); err != nil {
			return fmt.Errorf("loading images: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return doc, chunks, images, nil
}

func getDocument(ctx context.Context, q querier, key string) (*Document, error) {
	doc := &Document{}
	var filename, metadata sql.NullString
	err := q.QueryRowContext(ctx, `
		SELECT id, cache_key, content_hash, filename, format, parse_method, text, metadata, created_at
		FROM documents WHERE cache_key = ?
	`, key).Scan(&doc.ID, &doc.CacheKey, &doc.ContentHash, &filename, &doc.Format,
		&doc.ParseMethod, &doc.Text, &metadata, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Filename = filename.String
	doc.Metadata = metadata.String
	return doc, nil
}

func getChunks(ctx context.Context, q querier, documentID int64) ([]Chunk, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, document_id, seq, content, start_offset, end_offset, COALESCE(heading, ''),
			page_number, section_index, chunk_type, token_count, content_hash
		FROM chunks WHERE document_id = ? ORDER BY seq
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Seq, &c.Content, &c.StartOffset, &c.EndOffset,
			&c.Heading, &c.PageNumber, &c.SectionIndex, &c.ChunkType, &c.TokenCount, &c.ContentHash); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func getImages(ctx context.Context, q querier, documentID int64) ([]Image, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, document_id, position, mime_type, page_number, section_index, width, height, data
		FROM images WHERE document_id = ? ORDER BY position
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.DocumentID, &img.Position, &img.MIMEType,
			&img.PageNumber, &img.SectionIndex, &img.Width, &img.Height, &img.Data); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// Delete removes a cached document and its chunks and images.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE cache_key = ?", key)
	return err
}

// Prune removes entries created before cutoff and reports how many
// documents were dropped.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE created_at < ?",
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of cached documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
