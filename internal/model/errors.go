// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, capture, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeInvalidSource    = "INVALID_SOURCE"
	ErrCodeSessionNotFound  = "SESSION_NOT_FOUND"
	ErrCodeSessionNotActive = "SESSION_NOT_ACTIVE"
	ErrCodeNoActiveSession  = "NO_ACTIVE_SESSION"
	ErrCodeTweetNotFound    = "TWEET_NOT_FOUND"
	ErrCodeStoreFailed      = "STORE_FAILED"
	ErrCodeExportFailed     = "EXPORT_FAILED"
)

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの形式を確認してください。",
	}
}

// NewInvalidSourceError は未知のソース種別エラーを生成する。
func NewInvalidSourceError(source string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSource,
		Message:  fmt.Sprintf("無効なソース種別です: %s", source),
		Category: "validation",
		Action:   "source には bookmarks、usertweets、search、hometimeline のいずれかを指定してください。",
	}
}

// NewSessionNotFoundError はセッション未検出エラーを生成する。
func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("指定されたキャプチャセッションが見つかりません: %s", sessionID),
		Category: "capture",
		Action:   "セッションIDを確認してください。",
	}
}

// NewSessionNotActiveError は非アクティブセッションへの操作エラーを生成する。
func NewSessionNotActiveError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotActive,
		Message:  fmt.Sprintf("キャプチャセッションはすでに終了しています: %s", sessionID),
		Category: "capture",
		Action:   "新しいセッションを開始してください。",
	}
}

// NewNoActiveSessionError はアクティブセッション不在エラーを生成する。
func NewNoActiveSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveSession,
		Message:  "アクティブなキャプチャセッションがありません。",
		Category: "capture",
		Action:   "先にキャプチャセッションを開始してください。",
	}
}

// NewTweetNotFoundError はツイート未検出エラーを生成する。
func NewTweetNotFoundError(tweetID string) *APIError {
	return &APIError{
		Code:     ErrCodeTweetNotFound,
		Message:  fmt.Sprintf("指定されたツイートが見つかりません: %s", tweetID),
		Category: "storage",
		Action:   "ツイートIDを確認してください。",
	}
}

// NewStoreFailedError は永続化失敗エラーを生成する。
// キャプチャ済みデータが失われる可能性があるため、抽出系エラーと異なり呼び出し元へ伝播させる。
func NewStoreFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreFailed,
		Message:  "ツイートの保存に失敗しました。",
		Category: "storage",
		Action:   "データベースの状態を確認してから再度お試しください。",
	}
}
