package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tweetman/internal/model"
	"github.com/hitoshi/tweetman/internal/repository"
)

// SessionTracker はキャプチャセッションのライフサイクルと、
// セッション内の重複排除を管理する。
//
// 既読IDセットはこのトラッカーが排他的に所有し、セッション開始時に
// クリアされる。1セッション内で同一IDのレコードがこの経路から永続化層へ
// 渡ることはない（セッションをまたぐ重複はシンク側の一意制約が件数として
// 報告する）。
type SessionTracker struct {
	repo   repository.SessionRepository
	logger *slog.Logger

	current *model.CaptureSession
	seenIDs map[string]struct{}
}

// NewSessionTracker はSessionTrackerを生成する。
func NewSessionTracker(repo repository.SessionRepository, logger *slog.Logger) *SessionTracker {
	return &SessionTracker{
		repo:    repo,
		logger:  logger,
		seenIDs: make(map[string]struct{}),
	}
}

// Start は新しいキャプチャセッションを開始する。
// 既読IDセットはセッションのスコープなのでここでリセットされる。
func (s *SessionTracker) Start(ctx context.Context, sourceType model.SourceCategory, sessionContext string) (*model.CaptureSession, error) {
	session := &model.CaptureSession{
		ID:         uuid.New().String(),
		SourceType: sourceType,
		Context:    sessionContext,
		CreatedAt:  time.Now(),
		TweetCount: 0,
		Status:     model.SessionStatusActive,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.current = session
	s.seenIDs = make(map[string]struct{})

	s.logger.Info("キャプチャセッションを開始しました",
		slog.String("session_id", session.ID),
		slog.String("source_type", string(sourceType)),
	)

	return session, nil
}

// Stop は指定セッションをcompletedに遷移させる。
// アクティブなセッションと一致する場合は既読IDセットも解放する。
func (s *SessionTracker) Stop(ctx context.Context, sessionID string) (*model.CaptureSession, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewSessionNotFoundError(sessionID)
	}
	if session.Status != model.SessionStatusActive {
		return nil, model.NewSessionNotActiveError(sessionID)
	}

	now := time.Now()
	session.Status = model.SessionStatusCompleted
	session.CompletedAt = &now

	if err := s.repo.Update(ctx, session); err != nil {
		return nil, err
	}

	if s.current != nil && s.current.ID == sessionID {
		s.current = nil
		s.seenIDs = make(map[string]struct{})
	}

	s.logger.Info("キャプチャセッションを終了しました",
		slog.String("session_id", session.ID),
		slog.Int("tweet_count", session.TweetCount),
	)

	return session, nil
}

// Active は現在アクティブなセッションを返す。存在しない場合はnil。
func (s *SessionTracker) Active() *model.CaptureSession {
	return s.current
}

// Filter は抽出レコード群をセッション内未出のものだけに絞り込み、
// 生き残ったレコードに現在のセッションIDを刻印する。
// 絞り込んだレコードのIDは既読IDセットへ追加される。
// アクティブセッションがない場合は刻印なしで全件を通す。
func (s *SessionTracker) Filter(tweets []*model.Tweet) (fresh []*model.Tweet, duplicates int) {
	sessionID := ""
	if s.current != nil {
		sessionID = s.current.ID
	}

	for _, t := range tweets {
		if _, seen := s.seenIDs[t.ID]; seen {
			duplicates++
			continue
		}
		s.seenIDs[t.ID] = struct{}{}
		t.CaptureSessionID = sessionID
		fresh = append(fresh, t)
	}
	return fresh, duplicates
}

// AddTweetCount はアクティブセッションの進捗カウンタを加算して永続化する。
// カウンタ更新の失敗はキャプチャ経路を止めるほどのものではないため、
// ログに記録して握りつぶす。
func (s *SessionTracker) AddTweetCount(ctx context.Context, n int) {
	if s.current == nil || n == 0 {
		return
	}
	s.current.TweetCount += n
	if err := s.repo.Update(ctx, s.current); err != nil {
		s.logger.Warn("セッション進捗の更新に失敗しました",
			slog.String("session_id", s.current.ID),
			slog.String("error", err.Error()),
		)
	}
}
