package vectorstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// chunkColumns is the canonical column list shared by inserts and selects.
const chunkColumns = "id, content, embedding, source_type, source_id, category, metadata, chunk_index, token_count, created_at, updated_at"

// buildInsertChunksSQL builds ONE multi-row INSERT for the given chunks,
// returning the statement and its flat argument list. Latency of a batch
// write then scales with payload size instead of row count times round-trip
// time. All values travel as placeholders; nothing is interpolated.
func buildInsertChunksSQL(chunks []ContentChunk) (string, []any, error) {
	const columnsPerRow = 11

	var b strings.Builder
	b.WriteString("INSERT INTO content_chunks (")
	b.WriteString(chunkColumns)
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(chunks)*columnsPerRow)
	for i, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("marshaling metadata for chunk %d: %w", c.ChunkIndex, err)
		}

		if i > 0 {
			b.WriteString(", ")
		}
		base := i * columnsPerRow
		b.WriteString("(")
		for j := 1; j <= columnsPerRow; j++ {
			if j > 1 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", base+j)
		}
		b.WriteString(")")

		args = append(args,
			c.ID,
			c.Content,
			pgvector.NewVector(c.Embedding),
			c.SourceType,
			c.SourceID,
			pgtype.Text{String: c.Category, Valid: c.Category != ""},
			metadata,
			c.ChunkIndex,
			c.TokenCount,
			c.CreatedAt,
			c.UpdatedAt,
		)
	}

	return b.String(), args, nil
}

// buildSearchSQL builds the similarity query. The query vector is always $1
// and the SAME placeholder feeds the selected distance expression and the
// ORDER BY, so the planner sees one expression and results order by
// ascending cosine distance. Filter fields AND-combine; absent fields add
// no predicate.
func buildSearchSQL(query pgvector.Vector, topK int, f Filter) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(chunkColumns)
	b.WriteString(", embedding <=> $1 AS distance, 1 - (embedding <=> $1) AS similarity FROM content_chunks")

	args := []any{query}
	var conds []string
	if f.SourceType != "" {
		args = append(args, f.SourceType)
		conds = append(conds, fmt.Sprintf("source_type = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.SourceID != "" {
		args = append(args, f.SourceID)
		conds = append(conds, fmt.Sprintf("source_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	args = append(args, topK)
	fmt.Fprintf(&b, " ORDER BY embedding <=> $1 LIMIT $%d", len(args))

	return b.String(), args
}
