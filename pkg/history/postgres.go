package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/internal/types"
)

type PostgresConfig struct {
	ConnString string
	TableName  string
}

// PostgresStore persists analyses in the analyses table.
type PostgresStore struct {
	config PostgresConfig
	pool   *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, config PostgresConfig) (*PostgresStore, error) {
	if config.TableName == "" {
		config.TableName = "analyses"
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{config: config, pool: pool}
	if err := s.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initialize(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			user_id TEXT,
			image_url TEXT,
			detected_objects JSONB NOT NULL DEFAULT '[]',
			room_type TEXT,
			style_detected TEXT,
			improvement_score DOUBLE PRECISION,
			full_analysis JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.config.TableName)

	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_user_created_idx
		ON %s (user_id, created_at DESC)`,
		s.config.TableName, s.config.TableName)

	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, record models.AnalysisRecord) (models.AnalysisRecord, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.DetectedObjects == nil {
		record.DetectedObjects = []models.DetectedObject{}
	}

	objects, err := json.Marshal(record.DetectedObjects)
	if err != nil {
		return record, fmt.Errorf("failed to encode detected objects: %w", err)
	}
	var analysis []byte
	if record.FullAnalysis != nil {
		if analysis, err = json.Marshal(record.FullAnalysis); err != nil {
			return record, fmt.Errorf("failed to encode analysis: %w", err)
		}
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, image_url, detected_objects, room_type, style_detected, improvement_score, full_analysis)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		s.config.TableName)

	err = s.pool.QueryRow(ctx, stmt,
		record.ID,
		record.UserID,
		record.ImageURL,
		objects,
		record.RoomType,
		record.StyleDetected,
		record.ImprovementScore,
		analysis,
	).Scan(&record.CreatedAt)
	if err != nil {
		return record, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error) {
	query := fmt.Sprintf(`
		SELECT id::text, user_id, image_url, detected_objects, COALESCE(room_type, ''),
			COALESCE(style_detected, ''), COALESCE(improvement_score, 0), full_analysis, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		s.config.TableName)

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	records := []models.AnalysisRecord{}
	for rows.Next() {
		var (
			r                 models.AnalysisRecord
			objects, analysis []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ImageURL, &objects, &r.RoomType,
			&r.StyleDetected, &r.ImprovementScore, &analysis, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(objects) > 0 {
			if err := json.Unmarshal(objects, &r.DetectedObjects); err != nil {
				return nil, fmt.Errorf("analysis %s: failed to decode detected objects: %w", r.ID, err)
			}
		}
		if len(analysis) > 0 && string(analysis) != "null" {
			full := models.NewRoomAnalysis()
			if err := json.Unmarshal(analysis, &full); err != nil {
				return nil, fmt.Errorf("analysis %s: failed to decode analysis: %w", r.ID, err)
			}
			r.FullAnalysis = &full
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var _ types.HistoryStore = (*PostgresStore)(nil)
