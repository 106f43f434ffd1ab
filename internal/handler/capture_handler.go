package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tweetman/internal/capture"
	"github.com/hitoshi/tweetman/internal/model"
)

// CaptureServiceInterface はキャプチャハンドラーが必要とするサービスインターフェース。
type CaptureServiceInterface interface {
	// Process は傍受した1レスポンスを抽出パイプラインに通す。
	Process(ctx context.Context, url string, body []byte) (capture.ProcessResult, error)
	// StartSession は新しいキャプチャセッションを開始する。
	StartSession(ctx context.Context, sourceType model.SourceCategory, sessionContext string) (*model.CaptureSession, error)
	// StopSession は指定セッションを終了する。
	StopSession(ctx context.Context, sessionID string) (*model.CaptureSession, error)
	// ActiveSession は現在アクティブなセッションを返す。存在しない場合はnil。
	ActiveSession() *model.CaptureSession
	// RateStats は現在のスライディングウィンドウ観測値を返す。
	RateStats() capture.RateStats
}

// SessionListerInterface はセッション履歴の照会インターフェース。
type SessionListerInterface interface {
	ListSessions(ctx context.Context, limit int) ([]*model.CaptureSession, error)
}

// CaptureHandler はキャプチャ関連のHTTPハンドラー。
type CaptureHandler struct {
	service CaptureServiceInterface
	lister  SessionListerInterface
}

// NewCaptureHandler はCaptureHandlerを生成する。
func NewCaptureHandler(service CaptureServiceInterface, lister SessionListerInterface) *CaptureHandler {
	return &CaptureHandler{
		service: service,
		lister:  lister,
	}
}

// --- リクエスト・レスポンス型 ---

// ingestRequest は傍受レスポンス取り込みリクエストのボディ。
// bodyは傍受したGraphQL応答のJSONをそのまま含む。
type ingestRequest struct {
	URL  string          `json:"url"`
	Body json.RawMessage `json:"body"`
}

// sessionStartRequest はセッション開始リクエストのボディ。
type sessionStartRequest struct {
	SourceType string `json:"source_type"`
	Context    string `json:"context,omitempty"`
}

// sessionResponse はキャプチャセッションのレスポンス。
type sessionResponse struct {
	ID          string     `json:"id"`
	SourceType  string     `json:"source_type"`
	Context     string     `json:"context,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	TweetCount  int        `json:"tweet_count"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func toSessionResponse(s *model.CaptureSession) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		SourceType:  string(s.SourceType),
		Context:     s.Context,
		CreatedAt:   s.CreatedAt,
		TweetCount:  s.TweetCount,
		Status:      string(s.Status),
		CompletedAt: s.CompletedAt,
	}
}

// rateResponse はレートウィンドウのレスポンス。
type rateResponse struct {
	Calls10s   int `json:"calls_10s"`
	Records10s int `json:"records_10s"`
	Calls60s   int `json:"calls_60s"`
	Records60s int `json:"records_60s"`
}

// --- ハンドラー ---

// IngestResponse は傍受レスポンスを取り込む。
// POST /api/capture/responses
func (h *CaptureHandler) IngestResponse(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}
	if req.URL == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("urlが指定されていません"))
		return
	}

	result, err := h.service.Process(r.Context(), req.URL, req.Body)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// StartSession は新しいキャプチャセッションを開始する。
// POST /api/capture/sessions
func (h *CaptureHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	sourceType := model.SourceCategory(req.SourceType)
	if !sourceType.IsValid() {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidSourceError(req.SourceType))
		return
	}

	session, err := h.service.StartSession(r.Context(), sourceType, req.Context)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// StopSession は指定セッションを終了する。
// POST /api/capture/sessions/{id}/stop
func (h *CaptureHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	session, err := h.service.StopSession(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// ActiveSession は現在アクティブなセッションを返す。
// GET /api/capture/sessions/active
func (h *CaptureHandler) ActiveSession(w http.ResponseWriter, r *http.Request) {
	session := h.service.ActiveSession()
	if session == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNoActiveSessionError())
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// ListSessions はセッション履歴を返す。
// GET /api/capture/sessions?limit=50
func (h *CaptureHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 0)

	sessions, err := h.lister.ListSessions(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		resp[i] = toSessionResponse(s)
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": resp})
}

// GetRate は現在のレートウィンドウ観測値を返す。
// GET /api/capture/rate
func (h *CaptureHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	stats := h.service.RateStats()

	writeJSON(w, http.StatusOK, rateResponse{
		Calls10s:   stats.Calls10s,
		Records10s: stats.Records10s,
		Calls60s:   stats.Calls60s,
		Records60s: stats.Records60s,
	})
}
