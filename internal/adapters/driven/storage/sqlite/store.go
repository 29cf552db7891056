package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// maxQueryParams bounds the number of placeholders in one IN clause.
const maxQueryParams = 500

// Store is a unified SQLite-based storage that provides access to
// all relational store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.kbase/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".kbase", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
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

// CollectionStore returns a CollectionStore interface backed by this store.
func (s *Store) CollectionStore() driven.CollectionStore {
	return &collectionStore{store: s}
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// QueryLogStore returns a QueryLogStore interface backed by this store.
func (s *Store) QueryLogStore() driven.QueryLogStore {
	return &queryLogStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
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
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
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

		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// applyMigration runs one migration and records its version atomically.
func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("recording version %d: %w", version, err)
	}

	return tx.Commit()
}

// ==================== Collection Store ====================

// collectionStore implements driven.CollectionStore.
type collectionStore struct {
	store *Store
}

var _ driven.CollectionStore = (*collectionStore)(nil)

const collectionColumns = `id, name, description, provider, embedding_model,
	chunking_strategy, chunk_size, chunk_overlap, created_at, updated_at`

// Save stores or updates a collection.
func (s *collectionStore) Save(ctx context.Context, c *domain.Collection) error {
	if c.ID == "" {
		return fmt.Errorf("%w: collection id is required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO collections (`+collectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			provider = excluded.provider,
			embedding_model = excluded.embedding_model,
			chunking_strategy = excluded.chunking_strategy,
			chunk_size = excluded.chunk_size,
			chunk_overlap = excluded.chunk_overlap,
			updated_at = excluded.updated_at
	`, c.ID, c.Name, c.Description, c.Provider, c.EmbeddingModel,
		c.ChunkingStrategy, c.ChunkSize, c.ChunkOverlap, c.CreatedAt, c.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: collection %q", domain.ErrAlreadyExists, c.Name)
		}
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

// Get retrieves a collection by ID.
func (s *collectionStore) Get(ctx context.Context, id string) (*domain.Collection, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+collectionColumns+" FROM collections WHERE id = ?", id)
	return scanCollection(row)
}

// GetByName retrieves a collection by name.
func (s *collectionStore) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+collectionColumns+" FROM collections WHERE name = ?", name)
	return scanCollection(row)
}

// List returns all collections ordered by name.
func (s *collectionStore) List(ctx context.Context) ([]domain.Collection, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT "+collectionColumns+" FROM collections ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var collections []domain.Collection //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating collections: %w", err)
	}

	return collections, nil
}

// Delete removes a collection. Documents, chunks, embeddings and
// query logs are removed by cascade.
func (s *collectionStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	return requireAffected(res, "collection")
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, collection_id, filename, content, status, reason, created_at, updated_at`

// CreateDocument inserts a document.
func (s *documentStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if !doc.Status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrInvalidInput, doc.Status)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.CollectionID, doc.Filename, doc.Content, string(doc.Status),
		doc.Reason, doc.CreatedAt, doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("creating document: %w", err)
	}
	return nil
}

// UpdateStatus moves a document to a new status.
func (s *documentStore) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, reason string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrInvalidInput, status)
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, reason = ?, updated_at = ? WHERE id = ?
	`, string(status), reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return requireAffected(res, "document")
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	return scanDocument(row)
}

// ListDocuments returns documents for a collection, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE collection_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document with its chunks and embeddings.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireAffected(res, "document")
}

// DeleteDocuments removes every document in a collection.
func (s *documentStore) DeleteDocuments(ctx context.Context, collectionID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE collection_id = ?", collectionID)
	if err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	return nil
}

// SaveChunks stores chunks and their embeddings in one transaction.
func (s *documentStore) SaveChunks(ctx context.Context, documentID string, inputs []domain.ChunkInput) ([]domain.Chunk, error) {
	if len(inputs) == 0 {
		return []domain.Chunk{}, nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer chunkStmt.Close()

	embeddingStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO embeddings (chunk_id, provider, model, version, vector, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing embedding statement: %w", err)
	}
	defer embeddingStmt.Close()

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(inputs))
	for _, in := range inputs {
		chunk := domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Index:      in.Index,
			Content:    in.Content,
			CreatedAt:  now,
		}

		if _, err := chunkStmt.ExecContext(ctx, chunk.ID, chunk.DocumentID,
			chunk.Index, chunk.Content, chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("saving chunk %d: %w", in.Index, err)
		}

		if _, err := embeddingStmt.ExecContext(ctx, chunk.ID, in.Provider, in.Model,
			in.Version, float32SliceToBytes(in.Vector), now); err != nil {
			return nil, fmt.Errorf("saving embedding for chunk %d: %w", in.Index, err)
		}

		chunks = append(chunks, chunk)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return chunks, nil
}

// GetChunksByIDs fetches chunks by ID. Unknown IDs are skipped.
func (s *documentStore) GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0, len(ids))

	for start := 0; start < len(ids); start += maxQueryParams {
		batch := ids[start:min(start+maxQueryParams, len(ids))]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := s.store.db.QueryContext(ctx, `
			SELECT id, document_id, chunk_index, content, created_at
			FROM chunks WHERE id IN (`+placeholders+`)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("querying chunks: %w", err)
		}

		for rows.Next() {
			var chunk domain.Chunk
			var createdAt sql.NullTime
			if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Index,
				&chunk.Content, &createdAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning chunk: %w", err)
			}
			if createdAt.Valid {
				chunk.CreatedAt = createdAt.Time
			}
			chunks = append(chunks, chunk)
		}

		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating chunks: %w", err)
		}
	}

	return chunks, nil
}

// CountChunks returns the number of chunk rows in a collection.
func (s *documentStore) CountChunks(ctx context.Context, collectionID string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.collection_id = ?
	`, collectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// ListEmbeddings returns the embeddings of a collection's ready documents.
func (s *documentStore) ListEmbeddings(ctx context.Context, collectionID string) ([]domain.Embedding, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT e.id, e.chunk_id, e.provider, e.model, e.version, e.vector, e.created_at
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE d.collection_id = ? AND d.status = ?
		ORDER BY d.created_at, d.rowid, c.chunk_index
	`, collectionID, string(domain.DocumentReady))
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var embeddings []domain.Embedding //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.Embedding
		var vector []byte
		var createdAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.ChunkID, &e.Provider, &e.Model, &e.Version,
			&vector, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		e.Vector = bytesToFloat32Slice(vector)
		if createdAt.Valid {
			e.CreatedAt = createdAt.Time
		}
		embeddings = append(embeddings, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return embeddings, nil
}

// ==================== Query Log Store ====================

// queryLogStore implements driven.QueryLogStore.
type queryLogStore struct {
	store *Store
}

var _ driven.QueryLogStore = (*queryLogStore)(nil)

const queryLogColumns = `id, collection_id, query, context, answer, model,
	prompt_tokens, completion_tokens, total_tokens, latency_ms,
	feedback_rating, feedback_comment, created_at`

// Save inserts a query log.
func (s *queryLogStore) Save(ctx context.Context, log *domain.QueryLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var rating sql.NullInt64
	if log.FeedbackRating != nil {
		rating = sql.NullInt64{Int64: int64(*log.FeedbackRating), Valid: true}
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO query_logs (`+queryLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, log.ID, log.CollectionID, log.Query, log.Context, log.Answer, log.Model,
		log.PromptTokens, log.CompletionTokens, log.TotalTokens, log.LatencyMS,
		rating, log.FeedbackComment, log.CreatedAt)

	if err != nil {
		return fmt.Errorf("saving query log: %w", err)
	}
	return nil
}

// Get retrieves a query log by ID.
func (s *queryLogStore) Get(ctx context.Context, id string) (*domain.QueryLog, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT "+queryLogColumns+" FROM query_logs WHERE id = ?", id)
	return scanQueryLog(row)
}

// List returns a collection's logs, newest first. A non-positive limit
// returns every row.
func (s *queryLogStore) List(ctx context.Context, collectionID string, limit int) ([]domain.QueryLog, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+queryLogColumns+`
		FROM query_logs WHERE collection_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, collectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying query logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.QueryLog //nolint:prealloc // size unknown from query
	for rows.Next() {
		log, err := scanQueryLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query logs: %w", err)
	}

	return logs, nil
}

// SetFeedback overwrites the feedback on a log.
func (s *queryLogStore) SetFeedback(ctx context.Context, id string, rating int, comment string) error {
	if err := domain.ValidateRating(rating); err != nil {
		return err
	}

	res, err := s.store.db.ExecContext(ctx, `
		UPDATE query_logs SET feedback_rating = ?, feedback_comment = ? WHERE id = ?
	`, rating, comment, id)
	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	return requireAffected(res, "query log")
}

// ==================== Helpers ====================

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanCollection scans a single collection row.
func scanCollection(row scanner) (*domain.Collection, error) {
	var c domain.Collection
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Provider, &c.EmbeddingModel,
		&c.ChunkingStrategy, &c.ChunkSize, &c.ChunkOverlap, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning collection: %w", err)
	}

	if createdAt.Valid {
		c.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		c.UpdatedAt = updatedAt.Time
	}
	return &c, nil
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.CollectionID, &doc.Filename, &doc.Content,
		&status, &doc.Reason, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

// scanQueryLog scans a single query log row.
func scanQueryLog(row scanner) (*domain.QueryLog, error) {
	var log domain.QueryLog
	var rating sql.NullInt64
	var createdAt sql.NullTime
	if err := row.Scan(&log.ID, &log.CollectionID, &log.Query, &log.Context, &log.Answer,
		&log.Model, &log.PromptTokens, &log.CompletionTokens, &log.TotalTokens,
		&log.LatencyMS, &rating, &log.FeedbackComment, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning query log: %w", err)
	}

	if rating.Valid {
		r := int(rating.Int64)
		log.FeedbackRating = &r
	}
	if createdAt.Valid {
		log.CreatedAt = createdAt.Time
	}
	return &log, nil
}

// requireAffected maps a zero-row write to domain.ErrNotFound.
func requireAffected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, entity)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return []byte{}
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
