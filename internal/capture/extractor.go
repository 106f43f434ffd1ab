package capture

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/tweetman/internal/model"
)

// tweet_resultsノードの__typename判別値。
// 未知の判別値はクラッシュではなくスキップとして扱う。
const (
	typeNameTweet                = "Tweet"
	typeNameTweetWithVisibility  = "TweetWithVisibilityResults"
	typeNameTweetTombstone       = "TweetTombstone"
	typeNameTweetUnavailable     = "TweetUnavailable"
)

// TweetResult は1つのtweet_resultsノードの型付きビューを表す。
// TweetWithVisibilityResultsの場合は実体がTweetフィールドにラップされる。
type TweetResult struct {
	TypeName           string              `json:"__typename"`
	RestID             string              `json:"rest_id"`
	Tweet              *TweetResult        `json:"tweet"`
	Core               *tweetCore          `json:"core"`
	Legacy             *tweetLegacy        `json:"legacy"`
	NoteTweet          *noteTweet          `json:"note_tweet"`
	Views              *viewInfo           `json:"views"`
	QuotedStatusResult *quotedStatusResult `json:"quoted_status_result"`
}

type quotedStatusResult struct {
	Result *TweetResult `json:"result"`
}

type tweetCore struct {
	UserResults userResults `json:"user_results"`
}

type userResults struct {
	Result *userResult `json:"result"`
}

// userResult はユーザーノードを表す。
// プラットフォームのスキーマ変更により、name/screen_nameは新しい世代では
// Core配下、古い世代ではLegacy配下に存在する。フィールドごとに独立して
// 新→旧の順で解決する（1レコード内で両世代が混在しうる）。
type userResult struct {
	RestID         string      `json:"rest_id"`
	IsBlueVerified bool        `json:"is_blue_verified"`
	Core           *userCore   `json:"core"`
	Legacy         *userLegacy `json:"legacy"`
	Avatar         *userAvatar `json:"avatar"`
}

type userCore struct {
	Name       string `json:"name"`
	ScreenName string `json:"screen_name"`
}

type userLegacy struct {
	Name                 string `json:"name"`
	ScreenName           string `json:"screen_name"`
	FollowersCount       int    `json:"followers_count"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	ProfileImageURL      string `json:"profile_image_url"`
}

type userAvatar struct {
	ImageURL string `json:"image_url"`
}

// tweetLegacy はツイートノードの旧世代フラットフィールド群を表す。
type tweetLegacy struct {
	ConversationIDStr     string                 `json:"conversation_id_str"`
	CreatedAt             string                 `json:"created_at"`
	FullText              string                 `json:"full_text"`
	Text                  string                 `json:"text"`
	Lang                  string                 `json:"lang"`
	FavoriteCount         int                    `json:"favorite_count"`
	RetweetCount          int                    `json:"retweet_count"`
	ReplyCount            int                    `json:"reply_count"`
	QuoteCount            int                    `json:"quote_count"`
	BookmarkCount         int                    `json:"bookmark_count"`
	IsQuoteStatus         bool                   `json:"is_quote_status"`
	PossiblySensitive     bool                   `json:"possibly_sensitive"`
	InReplyToStatusIDStr  string                 `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr    string                 `json:"in_reply_to_user_id_str"`
	InReplyToScreenName   string                 `json:"in_reply_to_screen_name"`
	RetweetedStatusResult *retweetedStatusResult `json:"retweeted_status_result"`
	Entities              *mediaEntities         `json:"entities"`
	ExtendedEntities      *mediaEntities         `json:"extended_entities"`
}

type retweetedStatusResult struct {
	Result *TweetResult `json:"result"`
}

type noteTweet struct {
	NoteTweetResults noteTweetResults `json:"note_tweet_results"`
}

type noteTweetResults struct {
	Result *noteTweetResult `json:"result"`
}

type noteTweetResult struct {
	Text string `json:"text"`
}

type viewInfo struct {
	Count string `json:"count"`
}

// TextSanitizer は抽出したツイート本文の整形インターフェース。
// マークアップ除去とHTMLエンティティの復号を行う。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// Extractor は1つのtweet_resultsノードを正規化済みレコードへ変換する。
// 状態を持たず、構築して渡された依存のみを使う。
type Extractor struct {
	sanitizer TextSanitizer
	logger    *slog.Logger
	now       func() time.Time
}

// NewExtractor はExtractorを生成する。
func NewExtractor(sanitizer TextSanitizer, logger *slog.Logger) *Extractor {
	return &Extractor{
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
	}
}

// Extract はtweet_resultsノード1件からmodel.Tweetを組み立てる。
// 以下のいずれかに該当する場合はnilを返す（兄弟ノードの処理は継続される）:
// 必須の投稿者ブロック欠落、本文フィールド全滅、識別子欠落、未知の判別値。
func (e *Extractor) Extract(result *TweetResult, source model.SourceCategory, info model.RequestInfo) *model.Tweet {
	node, ok := unwrapResult(result)
	if !ok {
		e.logger.Debug("未知のtweet_results判別値のためスキップします",
			slog.String("typename", result.TypeName),
		)
		return nil
	}

	if node.RestID == "" {
		e.logger.Debug("rest_idが欠落しているためスキップします")
		return nil
	}

	legacy := node.Legacy
	if legacy == nil {
		e.logger.Debug("legacyブロックが欠落しているためスキップします",
			slog.String("tweet_id", node.RestID),
		)
		return nil
	}

	user := node.userNode()
	if user == nil {
		e.logger.Debug("core.user_results.resultが欠落しているためスキップします",
			slog.String("tweet_id", node.RestID),
		)
		return nil
	}

	fullText := e.resolveFullText(node)
	if fullText == "" {
		// プレースホルダや広告エントリは本文の有無でしか判別できない。
		// 本文が解決できないレコードは無効として破棄する。
		e.logger.Debug("本文を解決できなかったためスキップします",
			slog.String("tweet_id", node.RestID),
		)
		return nil
	}

	capturedAt := e.now()

	createdAt := capturedAt
	if legacy.CreatedAt != "" {
		if t, err := model.ParseTwitterDate(legacy.CreatedAt); err == nil {
			createdAt = t
		}
	}

	screenName := resolveScreenName(user)
	urlScreenName := screenName
	if urlScreenName == "" {
		urlScreenName = "unknown"
	}

	lang := legacy.Lang
	if lang == "" {
		lang = "en"
	}

	// リツイートの場合、エンゲージメント指標はラッパーではなく元ツイートの
	// legacyから取得する（ラッパー側の値はゼロや古い値であることが多い）。
	metrics := legacy
	if rt := node.retweetedResult(); rt != nil && rt.Legacy != nil {
		metrics = rt.Legacy
	}

	tweet := &model.Tweet{
		ID:             node.RestID,
		ConversationID: legacy.ConversationIDStr,
		CreatedAt:      createdAt,
		FullText:       fullText,
		Language:       lang,
		TweetURL:       model.BuildTweetURL(urlScreenName, node.RestID),

		AuthorID:              resolveAuthorID(user),
		AuthorScreenName:      screenName,
		AuthorName:            resolveName(user),
		AuthorVerified:        user.IsBlueVerified,
		AuthorFollowersCount:  followersCount(user),
		AuthorProfileImageURL: resolveAvatarURL(user),

		LikeCount:     metrics.FavoriteCount,
		RetweetCount:  metrics.RetweetCount,
		ReplyCount:    metrics.ReplyCount,
		QuoteCount:    metrics.QuoteCount,
		BookmarkCount: metrics.BookmarkCount,
		ViewCount:     resolveViewCount(node),

		IsQuoteStatus:     legacy.IsQuoteStatus,
		PossiblySensitive: legacy.PossiblySensitive,
		IsPinned:          false, // ピン留め命令経由の場合のみWalkerが設定する

		InReplyToStatusID:   optionalString(legacy.InReplyToStatusIDStr),
		InReplyToUserID:     optionalString(legacy.InReplyToUserIDStr),
		InReplyToScreenName: optionalString(legacy.InReplyToScreenName),

		HasMedia:  hasMedia(legacy),
		MediaInfo: extractMediaInfo(legacy),

		SourceCategory: source,
		SourceUserID:   info.UserID,
		SourceQuery:    info.Query,

		CapturedAt: capturedAt,

		QuotedTweet:     e.extractQuotedTweet(node),
		RetweetedStatus: e.extractRetweetedStatus(node),

		UniqueKey: model.BuildUniqueKey(screenName, node.RestID),
	}

	return tweet
}

// unwrapResult は__typename判別値に応じて実体ノードを取り出す。
// 既知の判別値以外（墓石・取得不能・新種）は第2戻り値falseでスキップを指示する。
func unwrapResult(result *TweetResult) (*TweetResult, bool) {
	switch result.TypeName {
	case typeNameTweet:
		return result, true
	case typeNameTweetWithVisibility:
		if result.Tweet == nil {
			return nil, false
		}
		return result.Tweet, true
	default:
		// TweetTombstone / TweetUnavailable を含む未知の判別値
		return nil, false
	}
}

// userNode はcore.user_results.resultを安全にたどる。
func (r *TweetResult) userNode() *userResult {
	if r.Core == nil {
		return nil
	}
	return r.Core.UserResults.Result
}

// retweetedResult はリツイート元ノードを安全にたどる。
// このノードが存在する場合、レコードはリツイートのラッパーである。
func (r *TweetResult) retweetedResult() *TweetResult {
	if r.Legacy == nil || r.Legacy.RetweetedStatusResult == nil {
		return nil
	}
	return r.Legacy.RetweetedStatusResult.Result
}

// quotedResult は引用元ノードを安全にたどる。
// 引用元が削除・非公開の場合は存在しない（nilを返し、エラーにしない）。
func (r *TweetResult) quotedResult() *TweetResult {
	if r.QuotedStatusResult == nil {
		return nil
	}
	return r.QuotedStatusResult.Result
}

// --- フィールド解決（新世代→旧世代のフォールバック） ---

// resolveScreenName はscreen_nameをuser.core優先・user.legacyフォールバックで解決する。
func resolveScreenName(u *userResult) string {
	if u.Core != nil && u.Core.ScreenName != "" {
		return u.Core.ScreenName
	}
	if u.Legacy != nil {
		return u.Legacy.ScreenName
	}
	return ""
}

// resolveName は表示名をuser.core優先・user.legacyフォールバックで解決する。
func resolveName(u *userResult) string {
	if u.Core != nil && u.Core.Name != "" {
		return u.Core.Name
	}
	if u.Legacy != nil {
		return u.Legacy.Name
	}
	return ""
}

// resolveAuthorID はユーザーのrest_idを返し、欠落時はscreen_nameで代用する。
func resolveAuthorID(u *userResult) string {
	if u.RestID != "" {
		return u.RestID
	}
	return resolveScreenName(u)
}

// resolveAvatarURL はアバターURLを3候補から解決する。最初の非空値が勝つ。
func resolveAvatarURL(u *userResult) string {
	if u.Avatar != nil && u.Avatar.ImageURL != "" {
		return u.Avatar.ImageURL
	}
	if u.Legacy != nil {
		if u.Legacy.ProfileImageURLHTTPS != "" {
			return u.Legacy.ProfileImageURLHTTPS
		}
		return u.Legacy.ProfileImageURL
	}
	return ""
}

func followersCount(u *userResult) int {
	if u.Legacy == nil {
		return 0
	}
	return u.Legacy.FollowersCount
}

// resolveViewCount は閲覧数を解決する。リツイートの場合は元ツイートの
// views.countを優先し、次に自身のviews.countを見る。いずれも欠落なら0。
func resolveViewCount(node *TweetResult) int64 {
	raw := ""
	if rt := node.retweetedResult(); rt != nil && rt.Views != nil {
		raw = rt.Views.Count
	}
	if raw == "" && node.Views != nil {
		raw = node.Views.Count
	}
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// --- 本文解決 ---

// displayText はノード自身の表示本文を優先順で解決する純粋関数。
// 優先順: 長文ノート本文 → full_text → 旧世代text。
// リツイート展開は行わない（再帰の上限を呼び出し側で証明可能に保つため）。
func displayText(node *TweetResult) string {
	if node.NoteTweet != nil && node.NoteTweet.NoteTweetResults.Result != nil {
		if text := node.NoteTweet.NoteTweetResults.Result.Text; text != "" {
			return text
		}
	}
	if node.Legacy == nil {
		return ""
	}
	if node.Legacy.FullText != "" {
		return node.Legacy.FullText
	}
	return node.Legacy.Text
}

// resolveFullText は保存用の本文を解決する。
// リツイートの場合は元ツイートの本文を1段だけ解決してRTマーカーと元投稿者の
// ハンドルを前置する（ラッパー側本文は「…」で切り詰められていることが多い）。
// 元ツイートから本文またはハンドルが得られない場合はラッパー自身の本文に
// フォールバックする（宙ぶらりんの「RT @:」を保存しないため）。
// すべて空ならレコード無効を示す空文字を返す。
func (e *Extractor) resolveFullText(node *TweetResult) string {
	if rt := node.retweetedResult(); rt != nil {
		if original, ok := unwrapResult(rt); ok {
			if text := displayText(original); text != "" {
				if u := original.userNode(); u != nil {
					if handle := resolveScreenName(u); handle != "" {
						return e.sanitizer.Sanitize(strings.TrimSpace("RT @" + handle + ": " + text))
					}
				}
			}
		}
	}

	text := displayText(node)
	if text == "" {
		return ""
	}
	return e.sanitizer.Sanitize(text)
}

// --- ネスト構造の抽出 ---

// extractQuotedTweet は引用元ツイートを縮約形で抽出する。
// 引用の中の引用・リツイートは解決しない（浅い抽出で深度を1段に制限し、
// 異常にネストしたペイロードでの再帰暴走を防ぐ）。
// 引用元が削除等で存在しない場合はnilを返す。
func (e *Extractor) extractQuotedTweet(node *TweetResult) *model.QuotedTweet {
	quoted := node.quotedResult()
	if quoted == nil {
		return nil
	}
	qnode, ok := unwrapResult(quoted)
	if !ok {
		return nil
	}

	var legacy *tweetLegacy
	if qnode.Legacy != nil {
		legacy = qnode.Legacy
	}

	q := &model.QuotedTweet{
		ID:   qnode.RestID,
		Text: e.sanitizer.Sanitize(displayText(qnode)),
	}

	if u := qnode.userNode(); u != nil {
		q.AuthorName = resolveName(u)
		q.AuthorScreenName = resolveScreenName(u)
		q.AuthorProfileImageURL = resolveAvatarURL(u)
	}

	if q.AuthorScreenName != "" && qnode.RestID != "" {
		q.TweetURL = model.BuildTweetURL(q.AuthorScreenName, qnode.RestID)
	}

	if legacy != nil {
		q.CreatedAt = legacy.CreatedAt
		q.LikeCount = legacy.FavoriteCount
		q.RetweetCount = legacy.RetweetCount
		q.ReplyCount = legacy.ReplyCount
		q.QuoteCount = legacy.QuoteCount
		q.HasMedia = hasMedia(legacy)
		q.MediaInfo = extractMediaInfo(legacy)
	}

	return q
}

// extractRetweetedStatus はリツイート元ツイートの最小表現を抽出する。
func (e *Extractor) extractRetweetedStatus(node *TweetResult) *model.RetweetedStatus {
	rt := node.retweetedResult()
	if rt == nil {
		return nil
	}
	rnode, ok := unwrapResult(rt)
	if !ok {
		return nil
	}

	status := &model.RetweetedStatus{
		ID:   rnode.RestID,
		Text: e.sanitizer.Sanitize(displayText(rnode)),
	}
	if u := rnode.userNode(); u != nil {
		status.AuthorName = resolveName(u)
		status.AuthorScreenName = resolveScreenName(u)
	}
	if rnode.Legacy != nil {
		status.CreatedAt = rnode.Legacy.CreatedAt
	}
	return status
}

// optionalString は空文字をnilに変換する。
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
