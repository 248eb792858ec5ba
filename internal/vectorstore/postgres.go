package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/teamgrid/ragengine/internal/model"
	"github.com/teamgrid/ragengine/internal/pkg/dbutil"
)

const tableName = "rag_embeddings"

var selectFields = []string{
	"id", "namespace_id", "namespace_type", "org_id", "source_type", "source_id",
	"content", "chunk_index", "chunk_total", "embedding", "metadata", "ctime", "mtime",
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, records []*model.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		metadata, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if record.Metadata == nil {
			metadata = []byte("{}")
		}
		var embedding interface{}
		if len(record.Embedding) > 0 {
			embedding = pgvector.NewVector(record.Embedding)
		}
		rows = append(rows, map[string]interface{}{
			"id":             record.ID,
			"namespace_id":   record.NamespaceID,
			"namespace_type": record.NamespaceType,
			"org_id":         record.OrgID,
			"source_type":    record.SourceType,
			"source_id":      record.SourceID,
			"content":        record.Content,
			"chunk_index":    record.ChunkIndex,
			"chunk_total":    record.ChunkTotal,
			"embedding":      embedding,
			"metadata":       string(metadata),
			"ctime":          record.Ctime,
			"mtime":          record.Mtime,
		})
	}
	sqlStr, args, err := builder.BuildInsert(tableName, rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *PostgresStore) DeleteBySource(ctx context.Context, sourceType, sourceID string) (int64, error) {
	where := map[string]interface{}{
		"source_type": sourceType,
		"source_id":   sourceID,
	}
	sqlStr, args, err := builder.BuildDelete(tableName, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) DeleteByNamespace(ctx context.Context, namespaceID string) (int64, error) {
	where := map[string]interface{}{
		"namespace_id": namespaceID,
	}
	sqlStr, args, err := builder.BuildDelete(tableName, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *PostgresStore) ExistsForSource(ctx context.Context, sourceType, sourceID string) (bool, error) {
	const query = `SELECT 1 FROM rag_embeddings WHERE source_type = $1 AND source_id = $2 LIMIT 1`
	var one int
	err := s.db.QueryRowContext(ctx, query, sourceType, sourceID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Search scopes candidates with SQL filters and scores them in process.
// Rows without an embedding are never candidates.
func (s *PostgresStore) Search(ctx context.Context, queryEmbedding []float32, opts SearchOptions) ([]model.SearchResult, error) {
	opts = opts.withDefaults()
	where := map[string]interface{}{}
	if opts.NamespaceID != "" {
		where["namespace_id"] = opts.NamespaceID
	}
	if len(opts.NamespaceIDs) > 0 {
		where["namespace_id in"] = toAnySlice(opts.NamespaceIDs)
	}
	if opts.NamespaceType != "" {
		where["namespace_type"] = opts.NamespaceType
	}
	if opts.OrgID != "" {
		where["org_id"] = opts.OrgID
	}
	if len(opts.SourceTypes) > 0 {
		where["source_type in"] = toAnySlice(opts.SourceTypes)
	}
	sqlStr, args, err := builder.BuildSelect(tableName, where, selectFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	candidates, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	return rank(queryEmbedding, candidates, opts), nil
}

func (s *PostgresStore) Stats(ctx context.Context, namespaceID string) (*model.NamespaceStats, error) {
	const query = `
		SELECT source_type, COUNT(*)
		FROM rag_embeddings
		WHERE namespace_id = $1
		GROUP BY source_type
	`
	rows, err := s.db.QueryContext(ctx, query, namespaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := &model.NamespaceStats{
		NamespaceID:  namespaceID,
		SourceCounts: map[string]int64{},
	}
	for rows.Next() {
		var sourceType string
		var count int64
		if err := rows.Scan(&sourceType, &count); err != nil {
			return nil, err
		}
		stats.SourceCounts[sourceType] = count
		stats.RecordCount += count
	}
	return stats, rows.Err()
}

func (s *PostgresStore) ListMissingEmbeddings(ctx context.Context, limit int) ([]model.EmbeddingRecord, error) {
	const query = `
		SELECT id, namespace_id, namespace_type, org_id, source_type, source_id,
			content, chunk_index, chunk_total, embedding, metadata, ctime, mtime
		FROM rag_embeddings
		WHERE embedding IS NULL
		ORDER BY ctime ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *PostgresStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	where := map[string]interface{}{
		"id": id,
	}
	update := map[string]interface{}{
		"embedding": pgvector.NewVector(embedding),
	}
	sqlStr, args, err := builder.BuildUpdate(tableName, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func scanRecords(rows *sql.Rows) ([]model.EmbeddingRecord, error) {
	var records []model.EmbeddingRecord
	for rows.Next() {
		var record model.EmbeddingRecord
		var embedding sql.Null[pgvector.Vector]
		var metadata []byte
		if err := rows.Scan(
			&record.ID, &record.NamespaceID, &record.NamespaceType, &record.OrgID,
			&record.SourceType, &record.SourceID, &record.Content,
			&record.ChunkIndex, &record.ChunkTotal, &embedding, &metadata,
			&record.Ctime, &record.Mtime,
		); err != nil {
			return nil, err
		}
		if embedding.Valid {
			record.Embedding = embedding.V.Slice()
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
				return nil, err
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func toAnySlice(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}
