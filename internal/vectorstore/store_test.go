package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/ashermoss/portfolio-rag/internal/log"
)

// ============================================================================
// Fakes for the DB interface
// ============================================================================

// fakeRows implements pgx.Rows over canned row values. Scan assigns values
// positionally via reflection, so tests provide exactly the types the store
// scans into (pgvector.Vector, pgtype.Text, []byte, ...).
type fakeRows struct {
	rows    [][]any
	idx     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.idx < len(r.rows) {
		r.idx++
		return true
	}
	return false
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

// fakeRow implements pgx.Row.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.vals) {
			break
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

// fakeDB implements DB, recording statements and returning canned results.
type fakeDB struct {
	execErr  error
	execTag  pgconn.CommandTag
	execSQL  []string
	execArgs [][]any

	queryErr   error
	queryQueue []*fakeRows
	querySQL   []string

	rowVals []any
	rowErr  error

	// execFailOn fails the Nth Exec call (1-based); 0 never fails.
	execFailOn int

	beginErr error
	// txExecFailOn is copied into the transaction handed out by Begin.
	txExecFailOn int
	tx           *fakeTx
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	if f.execFailOn > 0 && len(f.execSQL) == f.execFailOn {
		return pgconn.CommandTag{}, errors.New("constraint violation")
	}
	return f.execTag, nil
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.querySQL = append(f.querySQL, sql)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queryQueue) == 0 {
		return &fakeRows{}, nil
	}
	rows := f.queryQueue[0]
	f.queryQueue = f.queryQueue[1:]
	return rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{vals: f.rowVals, err: f.rowErr}
}

func (f *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	f.tx = &fakeTx{}
	f.tx.db.execFailOn = f.txExecFailOn
	return f.tx, nil
}

// fakeTx implements pgx.Tx, recording the statements run inside it.
type fakeTx struct {
	db         fakeDB
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}
func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}
func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}
func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}
func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *fakeTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Conn() *pgx.Conn { return nil }

// searchRow builds one canned similarity-search row.
func searchRow(content, sourceType string, similarity float64, metadata map[string]any) []any {
	md, _ := json.Marshal(metadata)
	now := time.Now()
	return []any{
		uuid.New(), content, pgvector.NewVector([]float32{0.1, 0.2}), sourceType, "s1",
		pgtype.Text{}, md, 0, 5, now, now,
		1 - similarity, similarity,
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestStoreChunk(t *testing.T) {
	db := &fakeDB{}
	store := New(db, log.Nop())

	got, err := store.StoreChunk(context.Background(), StoreChunkParams{
		Content:    "hello",
		Embedding:  []float32{1, 2},
		SourceType: SourceTypeProject,
		SourceID:   "p1",
		ChunkIndex: 0,
		TokenCount: 2,
	})
	if err != nil {
		t.Fatalf("StoreChunk() error: %v", err)
	}

	if got.ID == uuid.Nil {
		t.Error("expected generated ID")
	}
	if got.Metadata == nil {
		t.Error("nil metadata should become an empty bag")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
	if len(db.execSQL) != 1 || !strings.HasPrefix(db.execSQL[0], "INSERT INTO content_chunks") {
		t.Errorf("unexpected statements: %v", db.execSQL)
	}
}

func TestStoreChunk_WrapsError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection refused")}
	store := New(db, log.Nop())

	_, err := store.StoreChunk(context.Background(), StoreChunkParams{Content: "x"})
	if err == nil || !strings.Contains(err.Error(), "storing chunk:") {
		t.Fatalf("expected operation-identifying wrap, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("underlying cause lost: %v", err)
	}
}

func TestStoreChunksBatch_SingleStatement(t *testing.T) {
	db := &fakeDB{}
	store := New(db, log.Nop())

	chunks := []ChunkInput{
		{Content: "a", Embedding: []float32{1}, ChunkIndex: 0, TokenCount: 1},
		{Content: "b", Embedding: []float32{2}, ChunkIndex: 1, TokenCount: 1},
		{Content: "c", Embedding: []float32{3}, ChunkIndex: 2, TokenCount: 1},
	}

	got, err := store.StoreChunksBatch(context.Background(), chunks, SourceTypeProject, "p1", map[string]any{"title": "T"}, "backend")
	if err != nil {
		t.Fatalf("StoreChunksBatch() error: %v", err)
	}

	if len(db.execSQL) != 1 {
		t.Fatalf("batch must issue exactly one statement, got %d", len(db.execSQL))
	}
	if len(db.execArgs[0]) != 3*11 {
		t.Errorf("got %d args, want %d", len(db.execArgs[0]), 3*11)
	}
	for i, c := range got {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.SourceType != SourceTypeProject || c.SourceID != "p1" || c.Category != "backend" {
			t.Errorf("chunk %d lost shared attributes: %+v", i, c)
		}
	}
}

func TestStoreChunksBatch_Empty(t *testing.T) {
	db := &fakeDB{}
	store := New(db, log.Nop())

	got, err := store.StoreChunksBatch(context.Background(), nil, SourceTypeBlog, "b1", nil, "")
	if err != nil || got != nil {
		t.Fatalf("empty batch should be a no-op, got %v, %v", got, err)
	}
	if len(db.execSQL) != 0 {
		t.Error("empty batch must not hit the database")
	}
}

func TestSearchSimilar(t *testing.T) {
	rows := &fakeRows{rows: [][]any{
		searchRow("best match", SourceTypeProject, 0.91, map[string]any{"title": "Site"}),
		searchRow("second", SourceTypeBlog, 0.72, nil),
	}}
	db := &fakeDB{queryQueue: []*fakeRows{rows}}
	store := New(db, log.Nop())

	got, err := store.SearchSimilar(context.Background(), []float32{0.1, 0.2}, 5, Filter{SourceType: SourceTypeProject})
	if err != nil {
		t.Fatalf("SearchSimilar() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Similarity != 0.91 || got[0].Chunk.Content != "best match" {
		t.Errorf("first result mapped wrong: %+v", got[0])
	}
	if got[0].Chunk.Metadata["title"] != "Site" {
		t.Errorf("metadata not decoded: %v", got[0].Chunk.Metadata)
	}
	if got[1].Chunk.Metadata == nil {
		t.Error("missing metadata should decode to empty bag")
	}
	if !rows.closed {
		t.Error("rows not closed")
	}
}

func TestSearchSimilar_WrapsError(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("boom")}
	store := New(db, log.Nop())

	_, err := store.SearchSimilar(context.Background(), []float32{0.1}, 5, Filter{})
	if err == nil || !strings.Contains(err.Error(), "searching similar chunks:") {
		t.Fatalf("expected operation-identifying wrap, got %v", err)
	}
}

func TestDeleteChunksBySource(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 4")}
	store := New(db, log.Nop())

	count, err := store.DeleteChunksBySource(context.Background(), SourceTypeProject, "p1")
	if err != nil {
		t.Fatalf("DeleteChunksBySource() error: %v", err)
	}
	if count != 4 {
		t.Errorf("count = %d, want 4", count)
	}
	if !strings.Contains(db.execSQL[0], "DELETE FROM content_chunks WHERE source_type = $1 AND source_id = $2") {
		t.Errorf("unexpected statement: %s", db.execSQL[0])
	}
}

func TestReplaceSourceChunks_Transactional(t *testing.T) {
	db := &fakeDB{}
	store := New(db, log.Nop())

	chunks := []ChunkInput{
		{Content: "new a", Embedding: []float32{1}, ChunkIndex: 0, TokenCount: 1},
		{Content: "new b", Embedding: []float32{2}, ChunkIndex: 1, TokenCount: 1},
	}

	got, err := store.ReplaceSourceChunks(context.Background(), SourceTypeProject, "p1", chunks, nil, "")
	if err != nil {
		t.Fatalf("ReplaceSourceChunks() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}

	tx := db.tx
	if tx == nil {
		t.Fatal("no transaction started")
	}
	// Delete then insert, both inside the transaction, then commit.
	if len(tx.db.execSQL) != 2 {
		t.Fatalf("expected 2 statements in tx, got %d", len(tx.db.execSQL))
	}
	if !strings.HasPrefix(tx.db.execSQL[0], "DELETE FROM content_chunks") {
		t.Errorf("first tx statement should delete: %s", tx.db.execSQL[0])
	}
	if !strings.HasPrefix(tx.db.execSQL[1], "INSERT INTO content_chunks") {
		t.Errorf("second tx statement should insert: %s", tx.db.execSQL[1])
	}
	if !tx.committed {
		t.Error("transaction not committed")
	}
	if tx.rolledBack {
		t.Error("committed transaction must not roll back")
	}
}

func TestReplaceSourceChunks_RollsBackOnInsertFailure(t *testing.T) {
	// Fail the second statement inside the transaction, which is the insert.
	db := &fakeDB{txExecFailOn: 2}
	store := New(db, log.Nop())

	chunks := []ChunkInput{{Content: "a", Embedding: []float32{1}}}
	_, err := store.ReplaceSourceChunks(context.Background(), SourceTypeProject, "p1", chunks, nil, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "replacing chunks for project/p1") {
		t.Errorf("expected operation-identifying wrap, got %v", err)
	}
	if db.tx.committed {
		t.Error("failed replace must not commit")
	}
	if !db.tx.rolledBack {
		t.Error("failed replace must roll back")
	}
}

func TestChunksBySource(t *testing.T) {
	now := time.Now()
	mkRow := func(content string, idx int) []any {
		return []any{
			uuid.New(), content, pgvector.NewVector([]float32{1}), SourceTypeProject, "p1",
			pgtype.Text{String: "backend", Valid: true}, []byte(`{}`), idx, 3, now, now,
		}
	}
	rows := &fakeRows{rows: [][]any{mkRow("c0", 0), mkRow("c1", 1), mkRow("c2", 2)}}
	db := &fakeDB{queryQueue: []*fakeRows{rows}}
	store := New(db, log.Nop())

	got, err := store.ChunksBySource(context.Background(), SourceTypeProject, "p1")
	if err != nil {
		t.Fatalf("ChunksBySource() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d chunks, want 3", len(got))
	}
	for i, c := range got {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.Category != "backend" {
			t.Errorf("chunk %d category = %q", i, c.Category)
		}
	}
	if !strings.Contains(db.querySQL[0], "ORDER BY chunk_index") {
		t.Errorf("lookup must order by chunk index: %s", db.querySQL[0])
	}
}

func TestGetStats(t *testing.T) {
	db := &fakeDB{
		rowVals: []any{12},
		queryQueue: []*fakeRows{
			{rows: [][]any{{"project", 7}, {"blog", 5}}},
			{rows: [][]any{{"backend", 4}}},
		},
	}
	store := New(db, log.Nop())

	got, err := store.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if got.TotalChunks != 12 {
		t.Errorf("total = %d, want 12", got.TotalChunks)
	}
	if got.ChunksByType["project"] != 7 || got.ChunksByType["blog"] != 5 {
		t.Errorf("by type = %v", got.ChunksByType)
	}
	if got.ChunksByCategory["backend"] != 4 {
		t.Errorf("by category = %v", got.ChunksByCategory)
	}
}
