package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/inspol/policyrag/common/logger"
	"github.com/inspol/policyrag/config"
	"github.com/inspol/policyrag/schema"
)

// PostgresStore serves chunk reads from Postgres: pgvector cosine search,
// tsvector full-text search, chunk_index adjacency and clause lookups, all
// joined against active documents.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgres connects with the configured pool settings (pre-ping happens
// on the initial connection).
func OpenPostgres(cfg config.DatabaseConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifeSecs) * time.Second)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgres wraps an established gorm handle (tests).
func NewPostgres(db *gorm.DB) *PostgresStore { return &PostgresStore{db: db} }

type chunkRow struct {
	ChunkID          int64   `gorm:"column:chunk_id"`
	DocumentID       int64   `gorm:"column:document_id"`
	ChunkIndex       int     `gorm:"column:chunk_index"`
	Content          string  `gorm:"column:content"`
	ChunkType        string  `gorm:"column:chunk_type"`
	TokenCount       int     `gorm:"column:token_count"`
	PageNumber       *int    `gorm:"column:page_number"`
	SectionTitle     *string `gorm:"column:section_title"`
	ClauseNumber     *string `gorm:"column:clause_number"`
	Metadata         []byte  `gorm:"column:metadata"`
	DocumentFilename string  `gorm:"column:document_filename"`
	DocumentType     string  `gorm:"column:document_type"`
	CompanyName      string  `gorm:"column:company_name"`
	Score            float64 `gorm:"column:score"`
}

const chunkColumns = `
	c.id AS chunk_id,
	c.document_id,
	c.chunk_index,
	c.content,
	c.chunk_type,
	c.token_count,
	c.page_number,
	c.section_title,
	c.clause_number,
	c.metadata,
	d.filename AS document_filename,
	d.document_type,
	d.company_name`

// SearchVectors implements ChunkStore. similarity = 1 - cosine_distance.
func (s *PostgresStore) SearchVectors(ctx context.Context, queryEmbedding []float32, threshold float64, limit int, f Filters) ([]schema.AnnotatedChunk, error) {
	vec := vectorLiteral(queryEmbedding)

	sql := fmt.Sprintf(`
		SELECT %s,
			1 - (c.embedding <=> ?::vector) AS score
		FROM document_chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE 1 - (c.embedding <=> ?::vector) > ?
			AND d.status = 'active'
			%s
		ORDER BY c.embedding <=> ?::vector
		LIMIT ?`, chunkColumns, filterSQL(f))

	args := []any{vec, vec, threshold}
	args = append(args, filterArgs(f)...)
	args = append(args, vec, limit)

	var rows []chunkRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return rowsToChunks(rows), nil
}

// FTSSearch implements ChunkStore. The tsquery string is already conjunctive
// (term1 & term2 & ...); ts_rank rides in the Rank field.
func (s *PostgresStore) FTSSearch(ctx context.Context, tsquery string, limit int, f Filters) ([]schema.AnnotatedChunk, error) {
	if strings.TrimSpace(tsquery) == "" {
		return nil, nil
	}

	sql := fmt.Sprintf(`
		SELECT %s,
			ts_rank(c.content_tsv, to_tsquery('simple', ?)) AS score
		FROM document_chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE c.content_tsv @@ to_tsquery('simple', ?)
			AND d.status = 'active'
			%s
		ORDER BY score DESC
		LIMIT ?`, chunkColumns, filterSQL(f))

	args := []any{tsquery, tsquery}
	args = append(args, filterArgs(f)...)
	args = append(args, limit)

	var rows []chunkRow
	if err := s.db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}
	return rowsToChunks(rows), nil
}

// GetAdjacent implements ChunkStore. Neighbors come from the same document,
// strictly before/after the pivot's chunk_index, ordered away from the pivot
// and flipped back to ascending order for prev.
func (s *PostgresStore) GetAdjacent(ctx context.Context, chunkID int64, direction schema.ExpandDirection, limit int) (Adjacent, error) {
	var pivot struct {
		DocumentID int64 `gorm:"column:document_id"`
		ChunkIndex int   `gorm:"column:chunk_index"`
	}
	err := s.db.WithContext(ctx).
		Raw(`SELECT document_id, chunk_index FROM document_chunks WHERE id = ?`, chunkID).
		Scan(&pivot).Error
	if err != nil {
		return Adjacent{}, fmt.Errorf("load pivot chunk %d: %w", chunkID, err)
	}
	if pivot.DocumentID == 0 {
		logger.Warnf("store: pivot chunk %d not found", chunkID)
		return Adjacent{}, nil
	}

	var adj Adjacent
	if direction == schema.ExpandPrev || direction == schema.ExpandBoth {
		sql := fmt.Sprintf(`
			SELECT %s, 1.0 AS score
			FROM document_chunks c
			INNER JOIN documents d ON c.document_id = d.id
			WHERE c.document_id = ? AND c.chunk_index < ? AND d.status = 'active'
			ORDER BY c.chunk_index DESC
			LIMIT ?`, chunkColumns)
		var rows []chunkRow
		if err := s.db.WithContext(ctx).Raw(sql, pivot.DocumentID, pivot.ChunkIndex, limit).Scan(&rows).Error; err != nil {
			return Adjacent{}, fmt.Errorf("adjacent prev of %d: %w", chunkID, err)
		}
		prev := rowsToChunks(rows)
		for i, j := 0, len(prev)-1; i < j; i, j = i+1, j-1 {
			prev[i], prev[j] = prev[j], prev[i]
		}
		adj.Prev = prev
	}
	if direction == schema.ExpandNext || direction == schema.ExpandBoth {
		sql := fmt.Sprintf(`
			SELECT %s, 1.0 AS score
			FROM document_chunks c
			INNER JOIN documents d ON c.document_id = d.id
			WHERE c.document_id = ? AND c.chunk_index > ? AND d.status = 'active'
			ORDER BY c.chunk_index ASC
			LIMIT ?`, chunkColumns)
		var rows []chunkRow
		if err := s.db.WithContext(ctx).Raw(sql, pivot.DocumentID, pivot.ChunkIndex, limit).Scan(&rows).Error; err != nil {
			return Adjacent{}, fmt.Errorf("adjacent next of %d: %w", chunkID, err)
		}
		adj.Next = rowsToChunks(rows)
	}
	return adj, nil
}

// GetByIDs implements ChunkStore.
func (s *PostgresStore) GetByIDs(ctx context.Context, ids []int64) ([]schema.AnnotatedChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	sql := fmt.Sprintf(`
		SELECT %s, 1.0 AS score
		FROM document_chunks c
		INNER JOIN documents d ON c.document_id = d.id
		WHERE c.id IN ?
		ORDER BY c.document_id, c.chunk_index`, chunkColumns)

	var rows []chunkRow
	if err := s.db.WithContext(ctx).Raw(sql, ids).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("get chunks by ids: %w", err)
	}
	return rowsToChunks(rows), nil
}

// ClauseNumbersExist implements ChunkStore.
func (s *PostgresStore) ClauseNumbersExist(ctx context.Context, clauses []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(clauses))
	if len(clauses) == 0 {
		return existing, nil
	}
	var found []string
	err := s.db.WithContext(ctx).
		Raw(`
			SELECT DISTINCT c.clause_number
			FROM document_chunks c
			INNER JOIN documents d ON c.document_id = d.id
			WHERE c.clause_number IN ? AND d.status = 'active'`, clauses).
		Scan(&found).Error
	if err != nil {
		return nil, fmt.Errorf("clause existence: %w", err)
	}
	for _, clause := range found {
		existing[clause] = true
	}
	return existing, nil
}

// Log implements SearchLogSink. Failures are logged and dropped.
func (s *PostgresStore) Log(ctx context.Context, entry SearchLogEntry) {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	err := s.db.WithContext(ctx).Exec(`
		INSERT INTO search_logs
			(user_id, query, query_intent, search_type, results_count, top_similarity_score, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID, entry.Query, entry.QueryIntent, entry.SearchType,
		entry.ResultsCount, entry.TopSimilarity, entry.ResponseTimeMS, createdAt,
	).Error
	if err != nil {
		logger.Warnf("store: search log insert failed: %v", err)
	}
}

func rowsToChunks(rows []chunkRow) []schema.AnnotatedChunk {
	out := make([]schema.AnnotatedChunk, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]any
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				logger.Debugf("store: chunk %d metadata parse failed: %v", row.ChunkID, err)
			}
		}
		c := schema.AnnotatedChunk{
			Chunk: schema.Chunk{
				ChunkID:    row.ChunkID,
				DocumentID: row.DocumentID,
				ChunkIndex: row.ChunkIndex,
				Content:    row.Content,
				ChunkType:  schema.ChunkType(row.ChunkType),
				TokenCount: row.TokenCount,
				PageNumber: row.PageNumber,
				Metadata:   metadata,
			},
			Document: schema.DocumentInfo{
				Filename:    row.DocumentFilename,
				Type:        row.DocumentType,
				CompanyName: row.CompanyName,
			},
			Rank: row.Score,
		}
		if row.SectionTitle != nil {
			c.SectionTitle = *row.SectionTitle
		}
		if row.ClauseNumber != nil {
			c.ClauseNumber = *row.ClauseNumber
		}
		out = append(out, c)
	}
	return out
}

func filterSQL(f Filters) string {
	var b strings.Builder
	if f.DocumentType != "" {
		b.WriteString(" AND d.document_type = ?")
	}
	if f.ClauseNumber != "" {
		b.WriteString(" AND c.clause_number = ?")
	}
	return b.String()
}

func filterArgs(f Filters) []any {
	var args []any
	if f.DocumentType != "" {
		args = append(args, f.DocumentType)
	}
	if f.ClauseNumber != "" {
		args = append(args, f.ClauseNumber)
	}
	return args
}

// vectorLiteral renders a pgvector input literal: [v1,v2,...].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
