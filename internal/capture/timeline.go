package capture

import (
	"encoding/json"
	"log/slog"

	"github.com/hitoshi/tweetman/internal/model"
)

// タイムライン命令の種別。この2種類以外は無視する。
const (
	instructionAddEntries = "TimelineAddEntries"
	instructionPinEntry   = "TimelinePinEntry"
)

// エントリ種別。単一ツイート以外（カーソル・広告等）は読み飛ばす。
const (
	entryTypeTimelineItem = "TimelineTimelineItem"
	itemTypeTimelineTweet = "TimelineTweet"
)

// instruction はタイムラインを更新する1つの命令を表す。
// Entriesは一括追加命令（TimelineAddEntries）、Entryはピン留め命令
// （TimelinePinEntry）で使われる。
type instruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

// timelineEntry は命令内の1エントリ（ツイート・カーソル等のUI単位）を表す。
type timelineEntry struct {
	EntryID string       `json:"entryId"`
	Content entryContent `json:"content"`
}

type entryContent struct {
	EntryType   string       `json:"entryType"`
	ItemContent *itemContent `json:"itemContent"`
}

type itemContent struct {
	ItemType     string        `json:"itemType"`
	TweetResults *tweetResults `json:"tweet_results"`
}

type tweetResults struct {
	Result *TweetResult `json:"result"`
}

// 以下はソース種別ごとのレスポンスエンベロープ。instructionsへの
// ルートパスはAPIごとに異なる（スキーマ世代の違いによる）。

type bookmarksEnvelope struct {
	Data struct {
		BookmarkTimelineV2 struct {
			Timeline struct {
				Instructions []instruction `json:"instructions"`
			} `json:"timeline"`
		} `json:"bookmark_timeline_v2"`
	} `json:"data"`
}

type userTweetsEnvelope struct {
	Data struct {
		User struct {
			Result struct {
				Timeline struct {
					Timeline struct {
						Instructions []instruction `json:"instructions"`
					} `json:"timeline"`
				} `json:"timeline"`
			} `json:"result"`
		} `json:"user"`
	} `json:"data"`
}

type searchEnvelope struct {
	Data struct {
		SearchByRawQuery struct {
			SearchTimeline struct {
				Timeline struct {
					Instructions []instruction `json:"instructions"`
				} `json:"timeline"`
			} `json:"search_timeline"`
		} `json:"search_by_raw_query"`
	} `json:"data"`
}

type homeTimelineEnvelope struct {
	Data struct {
		Home struct {
			HomeTimelineURT struct {
				Instructions []instruction `json:"instructions"`
			} `json:"home_timeline_urt"`
		} `json:"home"`
	} `json:"data"`
}

// Walker はレスポンスボディからソース種別ごとのルートパスをたどり、
// タイムライン命令を列挙してExtractorにディスパッチする。
type Walker struct {
	extractor *Extractor
	logger    *slog.Logger
}

// NewWalker はWalkerを生成する。
func NewWalker(extractor *Extractor, logger *slog.Logger) *Walker {
	return &Walker{
		extractor: extractor,
		logger:    logger,
	}
}

// Walk はレスポンスボディを解析し、抽出できたツイートをJSON内の出現順で返す。
// 2番目の戻り値はボディがJSONとして解釈できたかどうかを示す。
// ルートパスが存在しない場合は空スライスとtrueを返す。
// これはエラーではない（ページネーション終端や空の結果は正常かつ頻繁に起きる）。
func (w *Walker) Walk(body []byte, source model.SourceCategory, info model.RequestInfo) ([]*model.Tweet, bool) {
	instructions, ok := w.locateInstructions(body, source)
	if !ok {
		return nil, false
	}

	var tweets []*model.Tweet

	for _, ins := range instructions {
		switch ins.Type {
		case instructionAddEntries:
			for i := range ins.Entries {
				if tweet := w.extractEntry(&ins.Entries[i], source, info); tweet != nil {
					tweets = append(tweets, tweet)
				}
			}
		case instructionPinEntry:
			if ins.Entry == nil {
				continue
			}
			if tweet := w.extractEntry(ins.Entry, source, info); tweet != nil {
				tweet.IsPinned = true
				tweets = append(tweets, tweet)
			}
		default:
			// TimelineClearCache等、ツイートを運ばない命令は無視する
		}
	}

	return tweets, true
}

// locateInstructions はソース種別ごとのルートパスから命令配列を取り出す。
func (w *Walker) locateInstructions(body []byte, source model.SourceCategory) ([]instruction, bool) {
	switch source {
	case model.SourceBookmarks:
		var env bookmarksEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			w.logParseFailure(source, err)
			return nil, false
		}
		return env.Data.BookmarkTimelineV2.Timeline.Instructions, true
	case model.SourceUserTweets:
		var env userTweetsEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			w.logParseFailure(source, err)
			return nil, false
		}
		return env.Data.User.Result.Timeline.Timeline.Instructions, true
	case model.SourceSearch:
		var env searchEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			w.logParseFailure(source, err)
			return nil, false
		}
		return env.Data.SearchByRawQuery.SearchTimeline.Timeline.Instructions, true
	case model.SourceHomeTimeline:
		var env homeTimelineEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			w.logParseFailure(source, err)
			return nil, false
		}
		return env.Data.Home.HomeTimelineURT.Instructions, true
	default:
		return nil, false
	}
}

// extractEntry はエントリが単一ツイートを表す場合のみExtractorを呼び出す。
// カーソル・広告等のエントリはエラーなしで読み飛ばす。
func (w *Walker) extractEntry(entry *timelineEntry, source model.SourceCategory, info model.RequestInfo) *model.Tweet {
	if entry.Content.EntryType != entryTypeTimelineItem {
		return nil
	}
	ic := entry.Content.ItemContent
	if ic == nil || ic.ItemType != itemTypeTimelineTweet {
		return nil
	}
	if ic.TweetResults == nil || ic.TweetResults.Result == nil {
		return nil
	}

	tweet := w.extractor.Extract(ic.TweetResults.Result, source, info)
	if tweet == nil {
		w.logger.Debug("エントリからツイートを抽出できませんでした",
			slog.String("entry_id", entry.EntryID),
			slog.String("source", string(source)),
		)
	}
	return tweet
}

// logParseFailure はボディ解析失敗をログに記録する。
// 解析失敗は抽出レコード0件として扱い、上位へはエラーを返さない。
func (w *Walker) logParseFailure(source model.SourceCategory, err error) {
	w.logger.Debug("レスポンスボディの解析に失敗しました",
		slog.String("source", string(source)),
		slog.String("error", err.Error()),
	)
}
