package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tweetman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// キャプチャ
	CaptureService CaptureServiceInterface
	SessionLister  SessionListerInterface

	// ツイート照会
	TweetService TweetServiceInterface

	// 運用系
	MetricsHandler http.Handler
	DB             *sql.DB
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → RateLimit
//
// 取り込みエンドポイント（POST /api/capture/responses）だけは
// 専用の緩いレート制限を使う。/healthと/metricsはレート制限の外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	captureHandler := NewCaptureHandler(deps.CaptureService, deps.SessionLister)
	tweetHandler := NewTweetHandler(deps.TweetService)

	// --- 運用系ルート（レート制限なし） ---

	r.Get("/health", newHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 取り込みルート（専用レート制限） ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.IngestMiddleware())
		r.Post("/api/capture/responses", captureHandler.IngestResponse)
	})

	// --- 一般APIルート ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション管理
		r.Route("/api/capture/sessions", func(r chi.Router) {
			r.Post("/", captureHandler.StartSession)
			r.Get("/", captureHandler.ListSessions)
			r.Get("/active", captureHandler.ActiveSession)
			r.Post("/{id}/stop", captureHandler.StopSession)
		})

		// レートウィンドウ
		r.Get("/api/capture/rate", captureHandler.GetRate)

		// ツイート照会
		r.Route("/api/tweets", func(r chi.Router) {
			r.Get("/", tweetHandler.ListTweets)
			r.Delete("/", tweetHandler.ClearTweets)
			r.Get("/search", tweetHandler.SearchTweets)
			r.Get("/stats", tweetHandler.GetStats)
			r.Get("/export", tweetHandler.ExportTweets)
			r.Delete("/{id}", tweetHandler.DeleteTweet)
		})

		// 全データ削除（ツイート＋セッション）
		r.Delete("/api/data", tweetHandler.ClearAllData)
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  "database unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
