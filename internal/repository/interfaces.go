// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/tweetman/internal/model"
)

// StoreResult はバッチ書き込みの結果を表す。
// 重複はエラーではなく件数として報告される。
type StoreResult struct {
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
}

// TweetRepository はツイートレコードの永続化インターフェース。
// レコードはIDをキーとする追記専用ストアとして扱い、作成後の更新は行わない。
type TweetRepository interface {
	// StoreBatch はレコード群をput-if-absentで一括挿入する。
	// すでに存在するID（またはunique_key）は重複としてカウントし、
	// 残りのメンバーの書き込みは継続する。入力順は保存順に反映される。
	StoreBatch(ctx context.Context, tweets []*model.Tweet) (StoreResult, error)

	// ListBySource は指定ソースのレコードをcreated_at降順で返す。
	// categoryが空の場合は全ソースを対象とする。
	ListBySource(ctx context.Context, category model.SourceCategory, limit int) ([]*model.Tweet, error)

	// Search は本文・投稿者名・スクリーンネームの部分一致検索を行う。
	Search(ctx context.Context, term string, category model.SourceCategory, limit int) ([]*model.Tweet, error)

	// CountAll は全レコード数を返す。
	CountAll(ctx context.Context) (int, error)

	// CountBySource はソース種別ごとのレコード数を返す。
	CountBySource(ctx context.Context) (map[model.SourceCategory]int, error)

	// CountUniqueAuthors はスクリーンネームで数えた一意な投稿者数を返す。
	CountUniqueAuthors(ctx context.Context) (int, error)

	// DeleteByID は指定IDのレコードを削除する。存在しない場合はfalseを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// DeleteAllTweets はツイートのみを全削除する（セッションは残す）。
	DeleteAllTweets(ctx context.Context) error
}

// SessionRepository はキャプチャセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.CaptureSession) error

	// FindByID は指定IDのセッションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.CaptureSession, error)

	// Update はセッションの進捗カウンタと状態を上書きする。
	Update(ctx context.Context, session *model.CaptureSession) error

	// ListRecent はセッションをcreated_at降順で返す。
	ListRecent(ctx context.Context, limit int) ([]*model.CaptureSession, error)

	// CompleteStale はolderThanより前に作成されたactiveセッションを
	// completedに遷移させ、遷移させた件数を返す。
	CompleteStale(ctx context.Context, olderThan time.Time) (int64, error)

	// DeleteAll は全セッションを削除する。
	DeleteAll(ctx context.Context) error
}
