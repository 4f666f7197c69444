package store

// schemaSQL is the DDL for the result cache. Migrations layer on top of it.
// Document ids are never reused, so an id read before a replacing Put
// cannot pick up the new entry's rows.
const schemaSQL = `
-- One row per cached read, keyed by content hash + format + options
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    cache_key TEXT NOT NULL UNIQUE,
    content_hash TEXT NOT NULL,
    filename TEXT,
    format TEXT NOT NULL,
    parse_method TEXT NOT NULL,
    text TEXT NOT NULL,
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    content TEXT NOT NULL,
    start_offset INTEGER,
    end_offset INTEGER,
    heading TEXT,
    page_number INTEGER,
    section_index INTEGER,
    chunk_type TEXT NOT NULL,
    token_count INTEGER,
    content_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    mime_type TEXT NOT NULL,
    page_number INTEGER,
    section_index INTEGER,
    width INTEGER,
    height INTEGER,
    data BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, seq);
CREATE INDEX IF NOT EXISTS idx_images_document ON images(document_id, position);
`
