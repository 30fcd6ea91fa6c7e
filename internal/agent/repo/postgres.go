package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sherlock-relay/server/internal/agent/model"
	errx "github.com/sherlock-relay/server/internal/core/error"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS relay_threads (
	id          TEXT PRIMARY KEY,
	resource_id TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS relay_messages (
	id         BIGSERIAL PRIMARY KEY,
	thread_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS relay_messages_thread_idx ON relay_messages (thread_id, id);
`

// PGXQuerier is the subset of pgxpool.Pool / pgx.Conn used by the repository.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresThreadRepository stores threads in two tables: one row per thread and
// one row per turn.
type PostgresThreadRepository struct {
	db PGXQuerier
}

func NewPostgresThreadRepository(db PGXQuerier) *PostgresThreadRepository {
	return &PostgresThreadRepository{db: db}
}

// Migrate creates the tables when they do not exist.
func (r *PostgresThreadRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		logx.Error().Err(err).Msg("failed to migrate thread tables")
		return errx.WrapPostgres(err)
	}
	return nil
}

func (r *PostgresThreadRepository) Append(ctx context.Context, threadID string, turn *schema.Message) error {
	b, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO relay_messages (thread_id, role, payload) VALUES ($1, $2, $3)`,
		threadID, string(turn.Role), b,
	)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to insert turn")
		return errx.WrapPostgres(err)
	}
	_, err = r.db.Exec(ctx, `UPDATE relay_threads SET updated_at = now() WHERE id = $1`, threadID)
	return errx.WrapPostgres(err)
}

func (r *PostgresThreadRepository) History(ctx context.Context, threadID string, limit int) ([]*schema.Message, error) {
	query := `SELECT payload FROM relay_messages WHERE thread_id = $1 ORDER BY id`
	args := []any{threadID}
	if limit > 0 {
		query = `SELECT payload FROM (
			SELECT id, payload FROM relay_messages WHERE thread_id = $1 ORDER BY id DESC LIMIT $2
		) recent ORDER BY id`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to load thread history")
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	msgs := []*schema.Message{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		var m schema.Message
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal turn %d: %w", len(msgs), err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return msgs, nil
}

func (r *PostgresThreadRepository) EnsureThread(ctx context.Context, threadID, resourceID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO relay_threads (id, resource_id) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		threadID, resourceID,
	)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to ensure thread")
		return false, errx.WrapPostgres(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresThreadRepository) SetTitle(ctx context.Context, threadID, title string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE relay_threads SET title = $2, updated_at = now() WHERE id = $1`,
		threadID, title,
	)
	return errx.WrapPostgres(err)
}

// Thread returns the stored metadata, or nil when the thread is unknown.
func (r *PostgresThreadRepository) Thread(ctx context.Context, threadID string) (*model.Thread, error) {
	th := model.Thread{ID: threadID}
	err := r.db.QueryRow(ctx,
		`SELECT resource_id, title FROM relay_threads WHERE id = $1`, threadID,
	).Scan(&th.ResourceID, &th.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return &th, nil
}

var _ model.ThreadStore = (*PostgresThreadRepository)(nil)
