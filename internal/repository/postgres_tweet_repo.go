package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/tweetman/internal/model"
)

// PostgresTweetRepo はPostgreSQLを使用したツイートリポジトリ。
type PostgresTweetRepo struct {
	db *sql.DB
}

// NewPostgresTweetRepo はPostgresTweetRepoを生成する。
func NewPostgresTweetRepo(db *sql.DB) *PostgresTweetRepo {
	return &PostgresTweetRepo{db: db}
}

// tweetColumns はSELECT句で使用するカラム一覧。Scanの順序と一致させること。
const tweetColumns = `id, conversation_id, created_at, full_text, language, tweet_url,
	author_id, author_screen_name, author_name, author_verified,
	author_followers_count, author_profile_image_url,
	like_count, retweet_count, reply_count, quote_count, bookmark_count, view_count,
	is_quote_status, possibly_sensitive, is_pinned,
	in_reply_to_status_id, in_reply_to_user_id, in_reply_to_screen_name,
	has_media, media_info, source_category, source_user_id, source_query,
	captured_at, capture_session_id, quoted_tweet, retweeted_status, unique_key`

// StoreBatch はレコード群をput-if-absentで一括挿入する。
// ON CONFLICT DO NOTHINGにより、主キー（id）とunique_keyのどちらの衝突も
// エラーにせず重複としてカウントする。1トランザクションで入力順に処理する。
func (r *PostgresTweetRepo) StoreBatch(ctx context.Context, tweets []*model.Tweet) (StoreResult, error) {
	var result StoreResult
	if len(tweets) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tweets (`+tweetColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28,
		        $29, $30, $31, $32, $33, $34)
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return result, fmt.Errorf("INSERT文の準備に失敗: %w", err)
	}
	defer stmt.Close()

	for _, t := range tweets {
		mediaInfo, err := json.Marshal(t.MediaInfo)
		if err != nil {
			return result, fmt.Errorf("media_infoのシリアライズに失敗: %w", err)
		}
		var quoted, retweeted []byte
		if t.QuotedTweet != nil {
			if quoted, err = json.Marshal(t.QuotedTweet); err != nil {
				return result, fmt.Errorf("quoted_tweetのシリアライズに失敗: %w", err)
			}
		}
		if t.RetweetedStatus != nil {
			if retweeted, err = json.Marshal(t.RetweetedStatus); err != nil {
				return result, fmt.Errorf("retweeted_statusのシリアライズに失敗: %w", err)
			}
		}

		res, err := stmt.ExecContext(ctx,
			t.ID, t.ConversationID, t.CreatedAt, t.FullText, t.Language, t.TweetURL,
			t.AuthorID, t.AuthorScreenName, t.AuthorName, t.AuthorVerified,
			t.AuthorFollowersCount, t.AuthorProfileImageURL,
			t.LikeCount, t.RetweetCount, t.ReplyCount, t.QuoteCount, t.BookmarkCount, t.ViewCount,
			t.IsQuoteStatus, t.PossiblySensitive, t.IsPinned,
			t.InReplyToStatusID, t.InReplyToUserID, t.InReplyToScreenName,
			t.HasMedia, mediaInfo, string(t.SourceCategory), t.SourceUserID, t.SourceQuery,
			t.CapturedAt, t.CaptureSessionID, nullableJSON(quoted), nullableJSON(retweeted), t.UniqueKey,
		)
		if err != nil {
			return result, fmt.Errorf("ツイートの挿入に失敗 (id=%s): %w", t.ID, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return result, fmt.Errorf("挿入結果の取得に失敗: %w", err)
		}
		if affected > 0 {
			result.Stored++
		} else {
			result.Duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return StoreResult{}, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}

	return result, nil
}

// ListBySource は指定ソースのレコードをcreated_at降順で返す。
func (r *PostgresTweetRepo) ListBySource(ctx context.Context, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
	query := `SELECT ` + tweetColumns + ` FROM tweets`
	args := []any{}
	if category != "" {
		query += ` WHERE source_category = $1`
		args = append(args, string(category))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ツイート一覧の取得に失敗: %w", err)
	}
	defer rows.Close()

	return scanTweets(rows)
}

// Search は本文・投稿者名・スクリーンネームのILIKE部分一致検索を行う。
func (r *PostgresTweetRepo) Search(ctx context.Context, term string, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
	pattern := "%" + term + "%"
	query := `SELECT ` + tweetColumns + ` FROM tweets
		WHERE (full_text ILIKE $1 OR author_name ILIKE $1 OR author_screen_name ILIKE $1)`
	args := []any{pattern}
	if category != "" {
		query += ` AND source_category = $2`
		args = append(args, string(category))
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ツイート検索に失敗: %w", err)
	}
	defer rows.Close()

	return scanTweets(rows)
}

// CountAll は全レコード数を返す。
func (r *PostgresTweetRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM tweets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ツイート数の取得に失敗: %w", err)
	}
	return count, nil
}

// CountBySource はソース種別ごとのレコード数を返す。
func (r *PostgresTweetRepo) CountBySource(ctx context.Context) (map[model.SourceCategory]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source_category, count(*) FROM tweets GROUP BY source_category`)
	if err != nil {
		return nil, fmt.Errorf("ソース別件数の取得に失敗: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.SourceCategory]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("ソース別件数のスキャンに失敗: %w", err)
		}
		counts[model.SourceCategory(category)] = count
	}
	return counts, rows.Err()
}

// CountUniqueAuthors はスクリーンネームで数えた一意な投稿者数を返す。
func (r *PostgresTweetRepo) CountUniqueAuthors(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(DISTINCT author_screen_name) FROM tweets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("投稿者数の取得に失敗: %w", err)
	}
	return count, nil
}

// DeleteByID は指定IDのレコードを削除する。
func (r *PostgresTweetRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tweets WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ツイートの削除に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗: %w", err)
	}
	return affected > 0, nil
}

// DeleteAllTweets はツイートのみを全削除する。
func (r *PostgresTweetRepo) DeleteAllTweets(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tweets`); err != nil {
		return fmt.Errorf("ツイートの全削除に失敗: %w", err)
	}
	return nil
}

// nullableJSON は空のJSONバイト列をNULLに変換する。
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// scanTweets は結果セットからツイートレコードを復元する。
func scanTweets(rows *sql.Rows) ([]*model.Tweet, error) {
	var tweets []*model.Tweet
	for rows.Next() {
		t := &model.Tweet{}
		var (
			mediaInfo       []byte
			quoted          []byte
			retweeted       []byte
			sourceCategory  string
			inReplyToStatus sql.NullString
			inReplyToUser   sql.NullString
			inReplyToScreen sql.NullString
			sourceUserID    sql.NullString
			sourceQuery     sql.NullString
		)

		err := rows.Scan(
			&t.ID, &t.ConversationID, &t.CreatedAt, &t.FullText, &t.Language, &t.TweetURL,
			&t.AuthorID, &t.AuthorScreenName, &t.AuthorName, &t.AuthorVerified,
			&t.AuthorFollowersCount, &t.AuthorProfileImageURL,
			&t.LikeCount, &t.RetweetCount, &t.ReplyCount, &t.QuoteCount, &t.BookmarkCount, &t.ViewCount,
			&t.IsQuoteStatus, &t.PossiblySensitive, &t.IsPinned,
			&inReplyToStatus, &inReplyToUser, &inReplyToScreen,
			&t.HasMedia, &mediaInfo, &sourceCategory, &sourceUserID, &sourceQuery,
			&t.CapturedAt, &t.CaptureSessionID, &quoted, &retweeted, &t.UniqueKey,
		)
		if err != nil {
			return nil, fmt.Errorf("ツイートのスキャンに失敗: %w", err)
		}

		t.SourceCategory = model.SourceCategory(sourceCategory)
		t.InReplyToStatusID = nullStringPtr(inReplyToStatus)
		t.InReplyToUserID = nullStringPtr(inReplyToUser)
		t.InReplyToScreenName = nullStringPtr(inReplyToScreen)
		t.SourceUserID = nullStringPtr(sourceUserID)
		t.SourceQuery = nullStringPtr(sourceQuery)

		if len(mediaInfo) > 0 {
			if err := json.Unmarshal(mediaInfo, &t.MediaInfo); err != nil {
				return nil, fmt.Errorf("media_infoの復元に失敗: %w", err)
			}
		}
		if len(quoted) > 0 {
			t.QuotedTweet = &model.QuotedTweet{}
			if err := json.Unmarshal(quoted, t.QuotedTweet); err != nil {
				return nil, fmt.Errorf("quoted_tweetの復元に失敗: %w", err)
			}
		}
		if len(retweeted) > 0 {
			t.RetweetedStatus = &model.RetweetedStatus{}
			if err := json.Unmarshal(retweeted, t.RetweetedStatus); err != nil {
				return nil, fmt.Errorf("retweeted_statusの復元に失敗: %w", err)
			}
		}

		tweets = append(tweets, t)
	}
	return tweets, rows.Err()
}

// nullStringPtr はsql.NullStringを*stringに変換する。
func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
