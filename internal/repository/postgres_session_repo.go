package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/tweetman/internal/model"
)

// PostgresSessionRepo はPostgreSQLを使用したキャプチャセッションリポジトリ。
type PostgresSessionRepo struct {
	db *sql.DB
}

// NewPostgresSessionRepo はPostgresSessionRepoを生成する。
func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresSessionRepo) Create(ctx context.Context, session *model.CaptureSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO capture_sessions (id, source_type, context, created_at, tweet_count, status, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, string(session.SourceType), session.Context,
		session.CreatedAt, session.TweetCount, string(session.Status), session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("セッションの作成に失敗: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
func (r *PostgresSessionRepo) FindByID(ctx context.Context, id string) (*model.CaptureSession, error) {
	session := &model.CaptureSession{}
	var sourceType, status string
	var completedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, source_type, context, created_at, tweet_count, status, completed_at
		 FROM capture_sessions WHERE id = $1`,
		id,
	).Scan(
		&session.ID, &sourceType, &session.Context,
		&session.CreatedAt, &session.TweetCount, &status, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗: %w", err)
	}

	session.SourceType = model.SourceCategory(sourceType)
	session.Status = model.SessionStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		session.CompletedAt = &t
	}
	return session, nil
}

// Update はセッションの進捗カウンタと状態を上書きする。
func (r *PostgresSessionRepo) Update(ctx context.Context, session *model.CaptureSession) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE capture_sessions
		 SET tweet_count = $2, status = $3, completed_at = $4
		 WHERE id = $1`,
		session.ID, session.TweetCount, string(session.Status), session.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("セッションの更新に失敗: %w", err)
	}
	return nil
}

// ListRecent はセッションをcreated_at降順で返す。
func (r *PostgresSessionRepo) ListRecent(ctx context.Context, limit int) ([]*model.CaptureSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, source_type, context, created_at, tweet_count, status, completed_at
		 FROM capture_sessions ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("セッション一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	var sessions []*model.CaptureSession
	for rows.Next() {
		session := &model.CaptureSession{}
		var sourceType, status string
		var completedAt sql.NullTime

		if err := rows.Scan(
			&session.ID, &sourceType, &session.Context,
			&session.CreatedAt, &session.TweetCount, &status, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("セッションのスキャンに失敗: %w", err)
		}

		session.SourceType = model.SourceCategory(sourceType)
		session.Status = model.SessionStatus(status)
		if completedAt.Valid {
			t := completedAt.Time
			session.CompletedAt = &t
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// CompleteStale はolderThanより前に作成されたactiveセッションを
// completedに遷移させる。拡張機能がキャプチャ中にクラッシュした場合、
// セッションがactiveのまま残留するため、ワーカーが定期的に呼び出す。
func (r *PostgresSessionRepo) CompleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE capture_sessions
		 SET status = $1, completed_at = now()
		 WHERE status = $2 AND created_at < $3`,
		string(model.SessionStatusCompleted), string(model.SessionStatusActive), olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("残留セッションの完了処理に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	return affected, nil
}

// DeleteAll は全セッションを削除する。
func (r *PostgresSessionRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM capture_sessions`); err != nil {
		return fmt.Errorf("セッションの全削除に失敗: %w", err)
	}
	return nil
}
