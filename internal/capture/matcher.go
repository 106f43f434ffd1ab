// Package capture はインターセプトしたAPIレスポンスからツイートを抽出する
// パイプライン（エンドポイント判定・タイムライン走査・レコード抽出・
// 重複排除・レート観測）を提供する。
package capture

import (
	"regexp"

	"github.com/hitoshi/tweetman/internal/model"
)

// apiPattern はGraphQLエンドポイントのパスパターンとソース種別の対応を表す。
// パターンはAPI名前空間セグメントに既知のオペレーション名が続く形式のみに
// マッチする。部分一致や曖昧マッチは意図的に行わない（誤検知は無関係な
// ペイロード形状をパイプラインに流し込むため）。
type apiPattern struct {
	source  model.SourceCategory
	pattern *regexp.Regexp
}

// Matcher はリクエストURLを既知のエンドポイントパターン表と照合する。
type Matcher struct {
	patterns []apiPattern
}

// NewMatcher は既知のオペレーション名を登録したMatcherを生成する。
// オペレーション名は実運用上互いに排他なため、照合順序に意味はない。
func NewMatcher() *Matcher {
	return &Matcher{
		patterns: []apiPattern{
			{model.SourceBookmarks, regexp.MustCompile(`(?i)/i/api/graphql/[^/]+/Bookmarks`)},
			{model.SourceUserTweets, regexp.MustCompile(`(?i)/i/api/graphql/[^/]+/UserTweets`)},
			{model.SourceSearch, regexp.MustCompile(`(?i)/i/api/graphql/[^/]+/SearchTimeline`)},
			{model.SourceHomeTimeline, regexp.MustCompile(`(?i)/i/api/graphql/[^/]+/HomeTimeline`)},
		},
	}
}

// Match はURLに一致するソース種別を返す。
// どのパターンにも一致しない場合は第2戻り値がfalseとなり、
// 呼び出し側はボディの解析を行わない。
func (m *Matcher) Match(url string) (model.SourceCategory, bool) {
	for _, p := range m.patterns {
		if p.pattern.MatchString(url) {
			return p.source, true
		}
	}
	return "", false
}
