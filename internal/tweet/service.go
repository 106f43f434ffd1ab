// Package tweet は保存済みツイートの照会・管理機能を提供する。
package tweet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/tweetman/internal/model"
	"github.com/hitoshi/tweetman/internal/repository"
)

// Service は保存済みレコードの読み取り側サービス。
// 書き込みはキャプチャパイプラインが担い、こちらは照会と削除のみを扱う。
type Service struct {
	tweetRepo   repository.TweetRepository
	sessionRepo repository.SessionRepository

	defaultLimit     int
	exportMaxRecords int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	tweetRepo repository.TweetRepository,
	sessionRepo repository.SessionRepository,
	defaultLimit int,
	exportMaxRecords int,
) *Service {
	return &Service{
		tweetRepo:        tweetRepo,
		sessionRepo:      sessionRepo,
		defaultLimit:     defaultLimit,
		exportMaxRecords: exportMaxRecords,
	}
}

// List はレコード一覧をcreated_at降順で返す。
// sourceが空の場合は全ソース、limitが0以下の場合は既定値を使う。
func (s *Service) List(ctx context.Context, source string, limit int) ([]*model.Tweet, error) {
	category, err := s.parseSource(source)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.tweetRepo.ListBySource(ctx, category, limit)
}

// Search は本文・投稿者名・スクリーンネームの部分一致検索を行う。
func (s *Service) Search(ctx context.Context, term, source string, limit int) ([]*model.Tweet, error) {
	if term == "" {
		return nil, model.NewInvalidRequestError("検索語が指定されていません")
	}
	category, err := s.parseSource(source)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.tweetRepo.Search(ctx, term, category, limit)
}

// Stats は保存状況の統計情報。
type Stats struct {
	Total         int                          `json:"total"`
	BySource      map[model.SourceCategory]int `json:"by_source"`
	UniqueAuthors int                          `json:"unique_authors"`
}

// GetStats は全体件数・ソース別件数・一意な投稿者数を集計して返す。
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	total, err := s.tweetRepo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	bySource, err := s.tweetRepo.CountBySource(ctx)
	if err != nil {
		return nil, err
	}
	authors, err := s.tweetRepo.CountUniqueAuthors(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Total:         total,
		BySource:      bySource,
		UniqueAuthors: authors,
	}, nil
}

// Delete は指定IDのレコードを削除する。
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return model.NewInvalidRequestError("ツイートIDが指定されていません")
	}
	deleted, err := s.tweetRepo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return model.NewTweetNotFoundError(id)
	}
	return nil
}

// ClearTweets はツイートのみを全削除する。セッション履歴は残す。
func (s *Service) ClearTweets(ctx context.Context) error {
	return s.tweetRepo.DeleteAllTweets(ctx)
}

// ClearAll はツイートとセッションの両方を全削除する。
func (s *Service) ClearAll(ctx context.Context) error {
	if err := s.tweetRepo.DeleteAllTweets(ctx); err != nil {
		return err
	}
	return s.sessionRepo.DeleteAll(ctx)
}

// ExportJSON は全レコード（上限あり）を整形済みJSON配列として書き出す。
// 保存スキーマそのままの配列で、ラッパーオブジェクトは付けない。
// sourceを指定するとそのソースのみを対象とする。
func (s *Service) ExportJSON(ctx context.Context, source string) ([]byte, error) {
	category, err := s.parseSource(source)
	if err != nil {
		return nil, err
	}

	tweets, err := s.tweetRepo.ListBySource(ctx, category, s.exportMaxRecords)
	if err != nil {
		return nil, err
	}
	if tweets == nil {
		tweets = []*model.Tweet{}
	}

	data, err := json.MarshalIndent(tweets, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("エクスポートデータのシリアライズに失敗: %w", err)
	}
	return data, nil
}

// ListSessions はキャプチャセッションの履歴をcreated_at降順で返す。
func (s *Service) ListSessions(ctx context.Context, limit int) ([]*model.CaptureSession, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.sessionRepo.ListRecent(ctx, limit)
}

// parseSource はソース指定文字列を検証する。空文字は全ソースを意味する。
func (s *Service) parseSource(source string) (model.SourceCategory, error) {
	if source == "" {
		return "", nil
	}
	category := model.SourceCategory(source)
	if !category.IsValid() {
		return "", model.NewInvalidSourceError(source)
	}
	return category, nil
}
