package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/vision-sync/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore keeps products in a PostgreSQL table with a pgvector column.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "furniture_products"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 384 // local embedder
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			name TEXT,
			description TEXT NOT NULL,
			category TEXT,
			style TEXT,
			room_type TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	// HNSW rather than ivfflat: a catalog of a few dozen rows is far below ivfflat's list count.
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (vs *VectorStore) Upsert(ctx context.Context, products []models.EmbeddedProduct) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, category, style, room_type, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			style = EXCLUDED.style,
			room_type = EXCLUDED.room_type,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for _, p := range products {
		if len(p.Embedding) != vs.config.VectorDim {
			return fmt.Errorf("product %s: embedding has %d dimensions, table expects %d", p.ID, len(p.Embedding), vs.config.VectorDim)
		}

		_, err = tx.Exec(ctx, stmt,
			p.ID,
			sanitizeUTF8(p.Name),
			sanitizeUTF8(p.Description),
			p.Category,
			p.Style,
			p.RoomType,
			pgvector.NewVector(p.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (vs *VectorStore) Query(ctx context.Context, queryEmbedding []float32, limit int) ([]models.VectorMatch, error) {
	query := fmt.Sprintf(`
		SELECT id, COALESCE(name, ''), description, COALESCE(category, ''),
			COALESCE(style, ''), COALESCE(room_type, ''), embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	matches := []models.VectorMatch{}
	for rows.Next() {
		var (
			id, name, description, category, style, roomType string
			distance                                         float64
		)
		if err := rows.Scan(&id, &name, &description, &category, &style, &roomType, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		meta := map[string]string{
			"name":      name,
			"category":  category,
			"style":     style,
			"room_type": roomType,
		}
		matches = append(matches, newMatch(id, description, meta, distance))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return matches, nil
}

func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := vs.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

// sanitizeUTF8 drops invalid bytes so text columns accept the value.
func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
