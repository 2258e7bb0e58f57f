package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	duration        DOUBLE PRECISION NOT NULL,
	key_prefix      TEXT NOT NULL,
	master_playlist TEXT NOT NULL,
	renditions      JSONB NOT NULL,
	category        TEXT NOT NULL DEFAULT '',
	genre           TEXT NOT NULL DEFAULT '',
	tags            TEXT[] NOT NULL DEFAULT '{}',
	visibility      TEXT NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS videos_user_id_idx ON videos (user_id);
`

type PostgresStore struct {
	logger zerolog.Logger
	pool   *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	return &PostgresStore{
		logger: log.With().Str("module", "storage").Str("submodule", "postgres").Logger(),
		pool:   pool,
	}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create videos schema: %w", err)
	}
	return nil
}

// Insert creates the metadata record and returns its id.
func (s *PostgresStore) Insert(ctx context.Context, asset *VideoAsset) (string, error) {
	renditions, err := json.Marshal(asset.Renditions)
	if err != nil {
		return "", fmt.Errorf("encode renditions: %w", err)
	}

	tags := asset.Tags
	if tags == nil {
		tags = []string{}
	}

	var id string
	err = s.pool.QueryRow(ctx, `
INSERT INTO videos (id, user_id, title, description, duration, key_prefix, master_playlist,
	renditions, category, genre, tags, visibility, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11, $12, $13)
RETURNING id, created_at`,
		asset.ID, asset.UserID, asset.Title, asset.Description, asset.Duration,
		asset.KeyPrefix, asset.MasterPlaylist, string(renditions),
		asset.Category, asset.Genre, tags, string(asset.Visibility), asset.Status,
	).Scan(&id, &asset.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert video %s: %w", asset.ID, err)
	}

	s.logger.Info().Str("id", id).Str("user_id", asset.UserID).Msg("video record created")
	return id, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
