// Package capture は傍受したAPIレスポンスからツイートを抽出する
// パイプラインを提供する。
package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/tweetman/internal/metrics"
	"github.com/hitoshi/tweetman/internal/model"
	"github.com/hitoshi/tweetman/internal/repository"
)

// ProcessResult は1レスポンス処理の結果サマリを表す。
type ProcessResult struct {
	Matched    bool                 `json:"matched"`
	Source     model.SourceCategory `json:"source,omitempty"`
	Extracted  int                  `json:"extracted"`
	Stored     int                  `json:"stored"`
	Duplicates int                  `json:"duplicates"`
	Rate       RateStats            `json:"rate"`
}

// Service はマッチング・抽出・重複排除・永続化を直列に束ねる
// キャプチャパイプラインの本体。
//
// 抽出系の失敗（ボディ解析不能、未知のノード形状）はレコード0件として
// 吸収し、永続化の失敗のみを呼び出し元へエラーとして返す。
// ProcessとStartSession/StopSessionはmutexで直列化されるため、
// セッションの切り替わりとレスポンス処理が交錯することはない。
type Service struct {
	mu sync.Mutex

	matcher   *Matcher
	walker    *Walker
	sessions  *SessionTracker
	rate      *RateTracker
	tweetRepo repository.TweetRepository
	collector metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はキャプチャパイプラインを構築する。
func NewService(
	matcher *Matcher,
	walker *Walker,
	sessions *SessionTracker,
	rate *RateTracker,
	tweetRepo repository.TweetRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		matcher:   matcher,
		walker:    walker,
		sessions:  sessions,
		rate:      rate,
		tweetRepo: tweetRepo,
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// Process は傍受した1レスポンスをパイプラインに通す。
//
// URLが既知のエンドポイントパターンに一致しない場合はMatched=falseの
// 結果を返すだけで、エラーにはしない（拡張機能は対象外のURLも送ってくる）。
// 抽出0件も正常。エラーを返すのは永続化が失敗したときだけで、その場合も
// レートウィンドウにはAPI呼び出しとして記録済みである。
func (s *Service) Process(ctx context.Context, url string, body []byte) (ProcessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ProcessResult

	source, ok := s.matcher.Match(url)
	if !ok {
		s.collector.RecordUnmatchedURL()
		result.Rate = s.rate.Stats()
		return result, nil
	}
	result.Matched = true
	result.Source = source
	s.collector.RecordResponseProcessed(string(source))

	info := ParseRequestInfo(url)

	start := s.now()
	tweets, parsed := s.walker.Walk(body, source, info)
	s.collector.RecordExtractLatency(s.now().Sub(start))
	if !parsed {
		s.collector.RecordParseFailure(string(source))
	}

	result.Extracted = len(tweets)
	s.collector.RecordTweetsExtracted(len(tweets))

	// レートウィンドウには保存結果に関わらずAPI呼び出しとして記録する
	s.rate.Observe(len(tweets))
	stats := s.rate.Stats()
	s.collector.SetRateWindow(stats.Calls10s, stats.Records10s, stats.Calls60s, stats.Records60s)
	result.Rate = stats

	fresh, sessionDups := s.sessions.Filter(tweets)
	result.Duplicates += sessionDups

	if len(fresh) > 0 {
		stored, err := s.tweetRepo.StoreBatch(ctx, fresh)
		if err != nil {
			s.logger.Error("ツイートの保存に失敗しました",
				slog.String("source", string(source)),
				slog.Int("count", len(fresh)),
				slog.String("error", err.Error()),
			)
			return result, model.NewStoreFailedError()
		}
		result.Stored = stored.Stored
		result.Duplicates += stored.Duplicates
		s.collector.RecordTweetsStored(stored.Stored)

		s.sessions.AddTweetCount(ctx, stored.Stored)
	}
	s.collector.RecordTweetsDuplicate(result.Duplicates)

	s.logger.Info("レスポンスを処理しました",
		slog.String("source", string(source)),
		slog.Int("extracted", result.Extracted),
		slog.Int("stored", result.Stored),
		slog.Int("duplicates", result.Duplicates),
	)

	return result, nil
}

// StartSession は新しいキャプチャセッションを開始する。
func (s *Service) StartSession(ctx context.Context, sourceType model.SourceCategory, sessionContext string) (*model.CaptureSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Start(ctx, sourceType, sessionContext)
}

// StopSession は指定セッションを終了する。
func (s *Service) StopSession(ctx context.Context, sessionID string) (*model.CaptureSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Stop(ctx, sessionID)
}

// ActiveSession は現在アクティブなセッションを返す。存在しない場合はnil。
func (s *Service) ActiveSession() *model.CaptureSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Active()
}

// RateStats は現在のスライディングウィンドウ観測値を返す。
func (s *Service) RateStats() RateStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate.Stats()
}
