// Package cleanup は残留キャプチャセッションの自動完了ジョブを提供する。
// 拡張機能がセッションを終了しないままクラッシュ・タブクローズした場合、
// セッションがactiveのまま残るため、一定時間経過したものを定期バッチで
// completedへ遷移させる。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/tweetman/internal/repository"
)

// CleanupJob は残留セッションの自動完了ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な遷移処理を保証する。
type CleanupJob struct {
	sessions   repository.SessionRepository
	logger     *slog.Logger
	StaleAfter time.Duration // activeのまま放置を許す時間（デフォルト: 24時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions repository.SessionRepository, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:   sessions,
		logger:     logger,
		StaleAfter: 24 * time.Hour,
	}
}

// Run はStaleAfterより前に作成されたactiveセッションをcompletedへ遷移させる。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	olderThan := start.Add(-j.StaleAfter)
	completed, err := j.sessions.CompleteStale(ctx, olderThan)
	if err != nil {
		j.logger.Error("残留セッションの完了処理に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("stale_after", j.StaleAfter),
		)
		return fmt.Errorf("残留セッションの完了処理に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("残留セッションの完了処理が終わりました",
		slog.Int64("completed_count", completed),
		slog.Duration("stale_after", j.StaleAfter),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
