// Package sqlite implements the document store and both search indexes
// on a single SQLite database. Chunk text is indexed in an FTS5 table
// kept in sync by triggers; embeddings are stored as little-endian
// float32 blobs and scanned brute-force for similarity search.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/exegete-labs/exegete/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/exegete-labs/exegete/internal/core/domain"
	"github.com/exegete-labs/exegete/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage providing the document store
// and both index ports through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.exegete/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".exegete", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "library.db")

	// WAL mode so the ingestion workers and query path can overlap.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: dbPath}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// LexicalIndex returns a LexicalIndex backed by the FTS5 table.
func (s *Store) LexicalIndex() driven.LexicalIndex {
	return &lexicalIndex{store: s}
}

// VectorIndex returns a VectorIndex backed by the chunk embedding blobs.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// migrate applies any pending .up.sql migrations in version order. Each
// migration records its own version in schema_migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// ==================== Document Store ====================

// Ensure documentStore implements the interface.
var _ driven.DocumentStore = (*documentStore)(nil)

type documentStore struct {
	store *Store
}

func (d *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	_, err := d.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, doc_type, storage_path, status, error, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			doc_type = excluded.doc_type,
			storage_path = excluded.storage_path,
			status = excluded.status,
			error = excluded.error,
			owner_id = excluded.owner_id,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, string(doc.Type), doc.StoragePath, string(doc.Status),
		doc.Error, doc.OwnerID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

func (d *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := d.store.db.QueryRowContext(ctx, `
		SELECT id, title, doc_type, storage_path, status, error, owner_id, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

func (d *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT id, title, doc_type, storage_path, status, error, owner_id, created_at, updated_at
		FROM documents ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var docType, status string
		if err := rows.Scan(&doc.ID, &doc.Title, &docType, &doc.StoragePath,
			&status, &doc.Error, &doc.OwnerID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Type = domain.DocumentType(docType)
		doc.Status = domain.DocumentStatus(status)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (d *documentStore) DeleteDocument(ctx context.Context, id string) error {
	// Chunk rows cascade; the FTS delete trigger fires per cascaded row.
	res, err := d.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (d *documentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, detail string) error {
	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	row := tx.QueryRowContext(ctx, "SELECT status FROM documents WHERE id = ?", id)
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("reading current status: %w", err)
	}

	if !domain.DocumentStatus(current).CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, status)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, string(status), detail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return tx.Commit()
}

func (d *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, position, content, citation, embedding, word_count, embed_failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		citation, err := json.Marshal(chunk.Citation)
		if err != nil {
			return fmt.Errorf("encoding citation for chunk %s: %w", chunk.ID, err)
		}
		_, err = stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Position,
			chunk.Content, string(citation), float32SliceToBytes(chunk.Embedding),
			chunk.WordCount, boolToInt(chunk.EmbedFailed))
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", chunk.ID, err)
		}
	}
	return tx.Commit()
}

func (d *documentStore) AttachEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	res, err := d.store.db.ExecContext(ctx, `
		UPDATE chunks SET embedding = ?, embed_failed = 0 WHERE id = ?
	`, float32SliceToBytes(embedding), chunkID)
	if err != nil {
		return fmt.Errorf("attaching embedding: %w", err)
	}
	return requireRow(res)
}

func (d *documentStore) MarkChunkFailed(ctx context.Context, chunkID string) error {
	res, err := d.store.db.ExecContext(ctx, "UPDATE chunks SET embed_failed = 1 WHERE id = ?", chunkID)
	if err != nil {
		return fmt.Errorf("marking chunk failed: %w", err)
	}
	return requireRow(res)
}

func (d *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT id, document_id, position, content, citation, embedding, word_count, embed_failed
		FROM chunks WHERE document_id = ? ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}
	return chunks, rows.Err()
}

func (d *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	rows, err := d.store.db.QueryContext(ctx, `
		SELECT id, document_id, position, content, citation, embedding, word_count, embed_failed
		FROM chunks WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying chunk: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	return scanChunk(rows)
}

// ==================== Lexical Index ====================

// Ensure lexicalIndex implements the interface.
var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// lexicalIndex serves full-text search from the FTS5 table. Indexing is
// a no-op: the triggers on the chunks table keep FTS in sync, so a chunk
// is searchable the moment it is saved.
type lexicalIndex struct {
	store *Store
}

func (x *lexicalIndex) Index(_ context.Context, _ domain.Chunk) error {
	return nil
}

func (x *lexicalIndex) Delete(_ context.Context, _ string) error {
	return nil
}

func (x *lexicalIndex) Search(ctx context.Context, query string, filter driven.SearchFilter, limit int) ([]driven.LexicalHit, error) {
	match := ftsQuery(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT c.id, bm25(chunks_fts) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?
	`)
	args := []any{match}
	appendFilter(&sb, &args, filter)
	sb.WriteString(" ORDER BY rank LIMIT ?")
	args = append(args, limit)

	rows, err := x.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var hits []driven.LexicalHit
	for rows.Next() {
		var hit driven.LexicalHit
		var rank float64
		if err := rows.Scan(&hit.ChunkID, &rank); err != nil {
			return nil, fmt.Errorf("scanning fts hit: %w", err)
		}
		// bm25 returns lower-is-better negative ranks; invert so callers
		// get higher-is-better scores.
		hit.Score = -rank
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (x *lexicalIndex) Close() error {
	return nil
}

// ftsQuery converts free text to an FTS5 match expression: each term
// quoted and ANDed, so user punctuation cannot inject FTS syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ReplaceAll(t, `"`, "")
		if t != "" {
			quoted = append(quoted, `"`+t+`"`)
		}
	}
	return strings.Join(quoted, " ")
}

// ==================== Vector Index ====================

// Ensure vectorIndex implements the interface.
var _ driven.VectorIndex = (*vectorIndex)(nil)

// vectorIndex scans the stored embedding blobs. Add and Delete are
// no-ops: the embedding lives on the chunk row, so AttachEmbedding and
// document deletion already maintain the index.
type vectorIndex struct {
	store *Store
}

func (x *vectorIndex) Add(_ context.Context, _ string, _ []float32) error {
	return nil
}

func (x *vectorIndex) Delete(_ context.Context, _ string) error {
	return nil
}

func (x *vectorIndex) Search(ctx context.Context, query []float32, filter driven.SearchFilter, minSimilarity float64, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT c.id, c.embedding
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
	`)
	var args []any
	appendFilter(&sb, &args, filter)

	rows, err := x.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("scanning embeddings: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scanning embedding row: %w", err)
		}
		sim := cosineSimilarity(query, bytesToFloat32Slice(blob))
		// The floor applies during the scan so rejected vectors never
		// consume the result budget.
		if sim < minSimilarity {
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: id, Similarity: sim})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity == hits[j].Similarity {
			return hits[i].ChunkID < hits[j].ChunkID
		}
		return hits[i].Similarity > hits[j].Similarity
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (x *vectorIndex) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// appendFilter adds document type and ID restrictions to a query that
// has joined documents as d and chunks as c.
func appendFilter(sb *strings.Builder, args *[]any, filter driven.SearchFilter) {
	if len(filter.DocumentTypes) > 0 {
		sb.WriteString(" AND d.doc_type IN (" + placeholders(len(filter.DocumentTypes)) + ")")
		for _, t := range filter.DocumentTypes {
			*args = append(*args, string(t))
		}
	}
	if len(filter.DocumentIDs) > 0 {
		sb.WriteString(" AND c.document_id IN (" + placeholders(len(filter.DocumentIDs)) + ")")
		for _, id := range filter.DocumentIDs {
			*args = append(*args, id)
		}
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes cosine similarity clamped to [0, 1].
// Mismatched dimensions score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanDocument scans a single document row.
func scanDocument(row *sql.Row) (*domain.Document, error) {
	var doc domain.Document
	var docType, status string
	if err := row.Scan(&doc.ID, &doc.Title, &docType, &doc.StoragePath,
		&status, &doc.Error, &doc.OwnerID, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Type = domain.DocumentType(docType)
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

// scanChunk scans one chunk row from a *sql.Rows positioned on it.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var citation string
	var blob []byte
	var failed int
	if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Position, &chunk.Content,
		&citation, &blob, &chunk.WordCount, &failed); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	if err := json.Unmarshal([]byte(citation), &chunk.Citation); err != nil {
		return nil, fmt.Errorf("decoding citation for chunk %s: %w", chunk.ID, err)
	}
	chunk.Embedding = bytesToFloat32Slice(blob)
	chunk.EmbedFailed = failed != 0
	return &chunk, nil
}
