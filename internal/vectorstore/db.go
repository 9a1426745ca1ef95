package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// metadataDB is the SQLite-backed persistence layer for collection metadata
// rows and chunk (document + metadata) rows, adapted from the teacher's
// internal/store SQLite schema and WAL-mode pragmas.
//
// One metadataDB backs the whole Store (one file under chromadb_path), with
// every collection's chunks sharing the chunks table, scoped by the
// collection column. The HNSW graph and bleve filter index are kept as
// separate per-collection files alongside it (see annindex.go, filterindex.go).
type metadataDB struct {
	db *sql.DB
}

func openMetadataDB(path string) (*metadataDB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storageErrorf("open sqlite metadata db: %v", err)
	}
	db.SetMaxOpenConns(1) // single-writer per process; gofrs/flock guards cross-process access

	m := &metadataDB{db: db}
	if err := m.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *metadataDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		metadata_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT NOT NULL,
		collection TEXT NOT NULL,
		note_id TEXT NOT NULL,
		document TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		content_hash TEXT,
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_collection_note
		ON chunks (collection, note_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_collection_hash
		ON chunks (collection, content_hash) WHERE content_hash IS NOT NULL;
	`
	_, err := m.db.Exec(schema)
	if err != nil {
		return storageErrorf("create schema: %v", err)
	}
	return nil
}

func (m *metadataDB) createCollectionRow(ctx context.Context, name string, meta CollectionMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return storageErrorf("marshal collection metadata: %v", err)
	}
	res, err := m.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, metadata_json) VALUES (?, ?)`, name, data)
	if err != nil {
		return storageErrorf("insert collection %s: %v", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErrorf("insert collection %s: %v", name, err)
	}
	if n == 0 {
		return ErrCollectionExists
	}
	return nil
}

func (m *metadataDB) getCollectionRow(ctx context.Context, name string) (CollectionMetadata, error) {
	var data string
	err := m.db.QueryRowContext(ctx,
		`SELECT metadata_json FROM collections WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return CollectionMetadata{}, ErrCollectionNotFound
	}
	if err != nil {
		return CollectionMetadata{}, storageErrorf("read collection %s: %v", name, err)
	}
	var meta CollectionMetadata
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return CollectionMetadata{}, storageErrorf("decode collection metadata %s: %v", name, err)
	}
	return meta, nil
}

func (m *metadataDB) updateCollectionRow(ctx context.Context, name string, meta CollectionMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return storageErrorf("marshal collection metadata: %v", err)
	}
	res, err := m.db.ExecContext(ctx,
		`UPDATE collections SET metadata_json = ? WHERE name = ?`, data, name)
	if err != nil {
		return storageErrorf("update collection %s: %v", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrCollectionNotFound
	}
	return nil
}

func (m *metadataDB) deleteCollectionRow(ctx context.Context, name string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, name); err != nil {
		return storageErrorf("delete chunks for %s: %v", name, err)
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name); err != nil {
		return storageErrorf("delete collection %s: %v", name, err)
	}
	return nil
}

func (m *metadataDB) listCollectionRows(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name, metadata_json FROM collections ORDER BY name`)
	if err != nil {
		return nil, storageErrorf("list collections: %v", err)
	}
	defer rows.Close()

	var out []CollectionInfo
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, storageErrorf("scan collection row: %v", err)
		}
		var meta CollectionMetadata
		if err := json.Unmarshal([]byte(data), &meta); err != nil {
			return nil, storageErrorf("decode collection metadata %s: %v", name, err)
		}
		out = append(out, CollectionInfo{Name: name, Metadata: meta})
	}
	return out, rows.Err()
}

func (m *metadataDB) upsertChunkRows(ctx context.Context, collection string, batch []Record) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErrorf("begin upsert tx: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, collection, note_id, document, metadata_json, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			note_id = excluded.note_id,
			document = excluded.document,
			metadata_json = excluded.metadata_json,
			content_hash = excluded.content_hash
	`)
	if err != nil {
		return storageErrorf("prepare upsert: %v", err)
	}
	defer stmt.Close()

	for _, rec := range batch {
		noteID := rec.Metadata[MetaKeyNoteID]
		var contentHash any
		if ch := rec.Metadata[MetaKeyContentHash]; ch != "" {
			contentHash = ch
		}
		metaJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return storageErrorf("marshal chunk metadata %s: %v", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, collection, noteID, rec.Document, metaJSON, contentHash); err != nil {
			return storageErrorf("upsert chunk %s: %v", rec.ID, err)
		}
	}

	return tx.Commit()
}

func (m *metadataDB) getChunkRows(ctx context.Context, collection string, ids []string) (map[string]Record, error) {
	if len(ids) == 0 {
		return map[string]Record{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`SELECT id, document, metadata_json FROM chunks WHERE collection = ? AND id IN (%s)`,
		strings.Join(placeholders, ","))

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErrorf("fetch chunks: %v", err)
	}
	defer rows.Close()

	out := make(map[string]Record, len(ids))
	for rows.Next() {
		var id, document, metaJSON string
		if err := rows.Scan(&id, &document, &metaJSON); err != nil {
			return nil, storageErrorf("scan chunk row: %v", err)
		}
		var meta map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, storageErrorf("decode chunk metadata %s: %v", id, err)
		}
		out[id] = Record{ID: id, Document: document, Metadata: meta}
	}
	return out, rows.Err()
}

func (m *metadataDB) getChunksByNote(ctx context.Context, collection, noteID string) ([]Record, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, document, metadata_json FROM chunks WHERE collection = ? AND note_id = ?`,
		collection, noteID)
	if err != nil {
		return nil, storageErrorf("fetch chunks for note %s: %v", noteID, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id, document, metaJSON string
		if err := rows.Scan(&id, &document, &metaJSON); err != nil {
			return nil, storageErrorf("scan chunk row: %v", err)
		}
		var meta map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &meta); err != nil {
			return nil, storageErrorf("decode chunk metadata %s: %v", id, err)
		}
		out = append(out, Record{ID: id, Document: document, Metadata: meta})
	}
	return out, rows.Err()
}

func (m *metadataDB) deleteChunkRows(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`DELETE FROM chunks WHERE collection = ? AND id IN (%s)`,
		strings.Join(placeholders, ","))
	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return storageErrorf("delete chunks: %v", err)
	}
	return nil
}

func (m *metadataDB) scanNoteDigests(ctx context.Context, collection string) (map[string]NoteDigest, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, note_id, content_hash FROM chunks WHERE collection = ?`, collection)
	if err != nil {
		return nil, storageErrorf("scan note digests: %v", err)
	}
	defer rows.Close()

	out := make(map[string]NoteDigest)
	for rows.Next() {
		var id, noteID string
		var hash sql.NullString
		if err := rows.Scan(&id, &noteID, &hash); err != nil {
			return nil, storageErrorf("scan digest row: %v", err)
		}
		d := out[noteID]
		if hash.Valid {
			d.ContentHash = hash.String
		}
		d.ChunkIDs = append(d.ChunkIDs, id)
		out[noteID] = d
	}

	return out, rows.Err()
}

func (m *metadataDB) close() error {
	return m.db.Close()
}
