package model

import "time"

// SessionStatus はキャプチャセッションの状態を表す。
type SessionStatus string

const (
	// SessionStatusActive はキャプチャ進行中であることを示す。
	SessionStatusActive SessionStatus = "active"
	// SessionStatusCompleted はキャプチャが終了したことを示す。
	SessionStatusCompleted SessionStatus = "completed"
)

// CaptureSession はキャプチャの1回の実行単位を表す。
// セッション開始時に作成され、重複排除と進捗カウンタのスコープとなる。
type CaptureSession struct {
	ID          string         `json:"id"`
	SourceType  SourceCategory `json:"source_type"`
	Context     string         `json:"context"`
	CreatedAt   time.Time      `json:"created_at"`
	TweetCount  int            `json:"tweet_count"`
	Status      SessionStatus  `json:"status"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
