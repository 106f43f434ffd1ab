package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tweetman/internal/model"
	"github.com/hitoshi/tweetman/internal/tweet"
)

// TweetServiceInterface はツイートハンドラーが必要とするサービスインターフェース。
type TweetServiceInterface interface {
	// List はレコード一覧をcreated_at降順で返す。
	List(ctx context.Context, source string, limit int) ([]*model.Tweet, error)
	// Search は本文・投稿者名・スクリーンネームの部分一致検索を行う。
	Search(ctx context.Context, term, source string, limit int) ([]*model.Tweet, error)
	// GetStats は保存状況の統計情報を返す。
	GetStats(ctx context.Context) (*tweet.Stats, error)
	// Delete は指定IDのレコードを削除する。
	Delete(ctx context.Context, id string) error
	// ClearTweets はツイートのみを全削除する。セッション履歴は残す。
	ClearTweets(ctx context.Context) error
	// ClearAll はツイートとセッションの両方を全削除する。
	ClearAll(ctx context.Context) error
	// ExportJSON は全レコード（上限あり）を整形済みJSON配列で書き出す。
	ExportJSON(ctx context.Context, source string) ([]byte, error)
}

// TweetHandler は保存済みツイート照会のHTTPハンドラー。
type TweetHandler struct {
	service TweetServiceInterface
}

// NewTweetHandler はTweetHandlerを生成する。
func NewTweetHandler(service TweetServiceInterface) *TweetHandler {
	return &TweetHandler{service: service}
}

// tweetListResponse はツイート一覧のレスポンス。
type tweetListResponse struct {
	Tweets []*model.Tweet `json:"tweets"`
	Count  int            `json:"count"`
}

// ListTweets はレコード一覧を取得する。
// GET /api/tweets?source=bookmarks&limit=100
func (h *TweetHandler) ListTweets(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	limit := parseIntQuery(r, "limit", 0)

	tweets, err := h.service.List(r.Context(), source, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tweetListResponse{Tweets: tweets, Count: len(tweets)})
}

// SearchTweets は部分一致検索を行う。
// GET /api/tweets/search?q=golang&source=search&limit=100
func (h *TweetHandler) SearchTweets(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	source := r.URL.Query().Get("source")
	limit := parseIntQuery(r, "limit", 0)

	tweets, err := h.service.Search(r.Context(), term, source, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tweetListResponse{Tweets: tweets, Count: len(tweets)})
}

// GetStats は保存状況の統計情報を返す。
// GET /api/tweets/stats
func (h *TweetHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// ExportTweets は保存レコードをJSONファイルとしてダウンロードさせる。
// GET /api/tweets/export?source=bookmarks
func (h *TweetHandler) ExportTweets(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")

	data, err := h.service.ExportJSON(r.Context(), source)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="tweets_export.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeleteTweet は指定IDのレコードを削除する。
// DELETE /api/tweets/{id}
func (h *TweetHandler) DeleteTweet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearTweets はツイートのみを全削除する。セッション履歴は残す。
// DELETE /api/tweets
func (h *TweetHandler) ClearTweets(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearTweets(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClearAllData は全レコードと全セッションを削除する。
// DELETE /api/data
func (h *TweetHandler) ClearAllData(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearAll(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseIntQuery はクエリパラメータを整数として読み取る。
// 未指定・不正値の場合はdefaultValを返す。
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}
