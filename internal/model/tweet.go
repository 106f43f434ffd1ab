package model

import (
	"fmt"
	"strings"
	"time"
)

// SourceCategory はツイートの取得元APIの種別を表す。
type SourceCategory string

const (
	// SourceBookmarks はブックマークタイムラインからの取得を示す。
	SourceBookmarks SourceCategory = "bookmarks"
	// SourceUserTweets はユーザープロフィールタイムラインからの取得を示す。
	SourceUserTweets SourceCategory = "usertweets"
	// SourceSearch は検索結果タイムラインからの取得を示す。
	SourceSearch SourceCategory = "search"
	// SourceHomeTimeline はホームタイムラインからの取得を示す。
	SourceHomeTimeline SourceCategory = "hometimeline"
)

// IsValid は既知のソース種別かどうかを返す。
func (c SourceCategory) IsValid() bool {
	switch c {
	case SourceBookmarks, SourceUserTweets, SourceSearch, SourceHomeTimeline:
		return true
	}
	return false
}

// MediaVariant は動画・GIFのエンコードバリアントを表す。
type MediaVariant struct {
	Bitrate     int    `json:"bitrate"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// MediaInfo はツイートに添付されたメディア1件の情報を表す。
// Typeは photo / video / animated_gif のいずれか。
type MediaInfo struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	PreviewURL string         `json:"preview_url"`
	MediaURL   string         `json:"media_url"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	DurationMs int64          `json:"duration_ms,omitempty"`
	Variants   []MediaVariant `json:"variants,omitempty"`
}

// QuotedTweet は引用元ツイートの縮約表現を表す。
// 引用の中の引用・リツイートは解決しない（抽出深度を1段に制限するため）。
type QuotedTweet struct {
	ID                    string      `json:"id"`
	Text                  string      `json:"text"`
	AuthorName            string      `json:"author_name"`
	AuthorScreenName      string      `json:"author_screen_name"`
	AuthorProfileImageURL string      `json:"author_profile_image_url"`
	CreatedAt             string      `json:"created_at"`
	TweetURL              string      `json:"tweet_url,omitempty"`
	LikeCount             int         `json:"like_count"`
	RetweetCount          int         `json:"retweet_count"`
	ReplyCount            int         `json:"reply_count"`
	QuoteCount            int         `json:"quote_count"`
	HasMedia              bool        `json:"has_media"`
	MediaInfo             []MediaInfo `json:"media_info"`
}

// RetweetedStatus はリツイート元ツイートの最小表現を表す。
type RetweetedStatus struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	AuthorName       string `json:"author_name"`
	AuthorScreenName string `json:"author_screen_name"`
	CreatedAt        string `json:"created_at"`
}

// Tweet は抽出パイプラインの正規化済み出力レコードを表す。
// IDはプラットフォームが割り当てた一意識別子で、永続化層の主キーとなる。
type Tweet struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
	FullText       string    `json:"full_text"`
	Language       string    `json:"language"`
	TweetURL       string    `json:"tweet_url"`

	// 投稿者情報
	AuthorID              string `json:"author_id"`
	AuthorScreenName      string `json:"author_screen_name"`
	AuthorName            string `json:"author_name"`
	AuthorVerified        bool   `json:"author_verified"`
	AuthorFollowersCount  int    `json:"author_followers_count"`
	AuthorProfileImageURL string `json:"author_profile_image_url"`

	// エンゲージメント指標。リツイートの場合は元ツイートの値を格納する
	// （ラッパー側の値はゼロや古い値であることが多いため）。
	LikeCount     int   `json:"like_count"`
	RetweetCount  int   `json:"retweet_count"`
	ReplyCount    int   `json:"reply_count"`
	QuoteCount    int   `json:"quote_count"`
	BookmarkCount int   `json:"bookmark_count"`
	ViewCount     int64 `json:"view_count"`

	// 構造フラグ
	IsQuoteStatus     bool `json:"is_quote_status"`
	PossiblySensitive bool `json:"possibly_sensitive"`
	IsPinned          bool `json:"is_pinned"`

	// リプライ関係（リプライでない場合はnil）
	InReplyToStatusID   *string `json:"in_reply_to_status_id"`
	InReplyToUserID     *string `json:"in_reply_to_user_id"`
	InReplyToScreenName *string `json:"in_reply_to_screen_name"`

	// メディア
	HasMedia  bool        `json:"has_media"`
	MediaInfo []MediaInfo `json:"media_info"`

	// 取得元情報
	SourceCategory SourceCategory `json:"source_category"`
	SourceUserID   *string        `json:"source_user_id"`
	SourceQuery    *string        `json:"source_query"`

	// キャプチャメタデータ
	CapturedAt       time.Time `json:"captured_at"`
	CaptureSessionID string    `json:"capture_session_id"`

	// ネスト構造（存在しない場合はnil）
	QuotedTweet     *QuotedTweet     `json:"quoted_tweet"`
	RetweetedStatus *RetweetedStatus `json:"retweeted_status"`

	// UniqueKey は lower(author_screen_name) + "_" + id の派生キー。
	// 異常なペイロードでアカウント間のID衝突が起きた場合の防衛として
	// 主キーとは別の一意インデックスに使用する。
	UniqueKey string `json:"unique_key"`
}

// BuildUniqueKey はスクリーンネームとツイートIDから一意キーを導出する。
func BuildUniqueKey(screenName, id string) string {
	return strings.ToLower(screenName) + "_" + id
}

// BuildTweetURL はスクリーンネームとツイートIDからディープリンクを構築する。
func BuildTweetURL(screenName, id string) string {
	return fmt.Sprintf("https://twitter.com/%s/status/%s", screenName, id)
}

// twitterDateLayout はAPIが返す日付文字列の形式。
// 例: "Wed Oct 05 20:11:47 +0000 2022"
const twitterDateLayout = "Mon Jan 02 15:04:05 -0700 2006"

// ParseTwitterDate はAPIの日付文字列をtime.Timeに変換する。
// 解析できない場合はゼロ値とエラーを返す。
func ParseTwitterDate(s string) (time.Time, error) {
	t, err := time.Parse(twitterDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("日付文字列の解析に失敗: %w", err)
	}
	return t, nil
}

// RequestInfo はインターセプトしたリクエストURLから取り出した文脈情報を表す。
// 出所フィールド（source_user_id、source_query）の記録にのみ使用する。
type RequestInfo struct {
	Count  int
	Cursor *string
	UserID *string
	Query  *string
}
