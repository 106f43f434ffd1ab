package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/tweetman/internal/model"
)

// mockSessionRepo はSessionRepositoryのテスト用モック。
// Create/Updateされたセッションをメモリに保持する。
type mockSessionRepo struct {
	sessions  map[string]*model.CaptureSession
	createErr error
	updateErr error
	updates   int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.CaptureSession)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.CaptureSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, id string) (*model.CaptureSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.CaptureSession) error {
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepo) ListRecent(_ context.Context, _ int) ([]*model.CaptureSession, error) {
	return nil, nil
}

func (m *mockSessionRepo) CompleteStale(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepo) DeleteAll(_ context.Context) error {
	m.sessions = make(map[string]*model.CaptureSession)
	return nil
}

func newTestSessionTracker(repo *mockSessionRepo) *SessionTracker {
	return NewSessionTracker(repo, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestSessionTracker_Start_CreatesActiveSession(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	session, err := tracker.Start(context.Background(), model.SourceBookmarks, "my bookmarks")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if session.ID == "" {
		t.Error("session ID should be generated")
	}
	if session.Status != model.SessionStatusActive {
		t.Errorf("status = %q, want %q", session.Status, model.SessionStatusActive)
	}
	if session.Context != "my bookmarks" {
		t.Errorf("context = %q, want %q", session.Context, "my bookmarks")
	}
	if _, ok := repo.sessions[session.ID]; !ok {
		t.Error("session should be persisted via repo.Create")
	}
	if tracker.Active() == nil || tracker.Active().ID != session.ID {
		t.Error("Active() should return the started session")
	}
}

func TestSessionTracker_Start_CreateError_DoesNotActivate(t *testing.T) {
	repo := newMockSessionRepo()
	repo.createErr = errors.New("db down")
	tracker := newTestSessionTracker(repo)

	_, err := tracker.Start(context.Background(), model.SourceSearch, "")
	if err == nil {
		t.Fatal("Start() should return error when Create fails")
	}
	if tracker.Active() != nil {
		t.Error("Active() should remain nil after failed Start")
	}
}

func TestSessionTracker_Start_ResetsSeenIDs(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	if _, err := tracker.Start(context.Background(), model.SourceBookmarks, ""); err != nil {
		t.Fatal(err)
	}
	fresh, _ := tracker.Filter([]*model.Tweet{{ID: "1", AuthorScreenName: "a"}})
	if len(fresh) != 1 {
		t.Fatalf("first Filter: fresh = %d, want 1", len(fresh))
	}

	// 新しいセッションを開始すると同じIDが再び未出扱いになる
	if _, err := tracker.Start(context.Background(), model.SourceBookmarks, ""); err != nil {
		t.Fatal(err)
	}
	fresh, duplicates := tracker.Filter([]*model.Tweet{{ID: "1", AuthorScreenName: "a"}})
	if len(fresh) != 1 || duplicates != 0 {
		t.Errorf("after restart: fresh = %d, duplicates = %d, want 1/0", len(fresh), duplicates)
	}
}

func TestSessionTracker_Stop_CompletesSession(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	started, err := tracker.Start(context.Background(), model.SourceUserTweets, "@jack")
	if err != nil {
		t.Fatal(err)
	}

	stopped, err := tracker.Stop(context.Background(), started.ID)
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	if stopped.Status != model.SessionStatusCompleted {
		t.Errorf("status = %q, want %q", stopped.Status, model.SessionStatusCompleted)
	}
	if stopped.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
	if tracker.Active() != nil {
		t.Error("Active() should be nil after Stop")
	}
}

func TestSessionTracker_Stop_UnknownID_ReturnsNotFound(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	_, err := tracker.Stop(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeSessionNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeSessionNotFound)
	}
}

func TestSessionTracker_Stop_AlreadyCompleted_ReturnsNotActive(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	started, err := tracker.Start(context.Background(), model.SourceBookmarks, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tracker.Stop(context.Background(), started.ID); err != nil {
		t.Fatal(err)
	}

	_, err = tracker.Stop(context.Background(), started.ID)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeSessionNotActive {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeSessionNotActive)
	}
}

func TestFilter_DuplicatesWithinSession_AreDropped(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	started, err := tracker.Start(context.Background(), model.SourceBookmarks, "")
	if err != nil {
		t.Fatal(err)
	}

	// 1回目のバッチ
	fresh, duplicates := tracker.Filter([]*model.Tweet{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	})
	if len(fresh) != 3 || duplicates != 0 {
		t.Fatalf("first batch: fresh = %d, duplicates = %d, want 3/0", len(fresh), duplicates)
	}
	for _, tw := range fresh {
		if tw.CaptureSessionID != started.ID {
			t.Errorf("CaptureSessionID = %q, want %q", tw.CaptureSessionID, started.ID)
		}
	}

	// 2回目のバッチ: ページング境界の重なりで2件が再登場
	fresh, duplicates = tracker.Filter([]*model.Tweet{
		{ID: "2"}, {ID: "3"}, {ID: "4"},
	})
	if len(fresh) != 1 || duplicates != 2 {
		t.Errorf("second batch: fresh = %d, duplicates = %d, want 1/2", len(fresh), duplicates)
	}
	if fresh[0].ID != "4" {
		t.Errorf("surviving ID = %q, want 4", fresh[0].ID)
	}
}

func TestFilter_SameBatchDuplicate_CountsOnce(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	if _, err := tracker.Start(context.Background(), model.SourceBookmarks, ""); err != nil {
		t.Fatal(err)
	}

	fresh, duplicates := tracker.Filter([]*model.Tweet{
		{ID: "1"}, {ID: "1"},
	})
	if len(fresh) != 1 || duplicates != 1 {
		t.Errorf("fresh = %d, duplicates = %d, want 1/1", len(fresh), duplicates)
	}
}

func TestFilter_NoActiveSession_PassesAllWithoutStamping(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	fresh, duplicates := tracker.Filter([]*model.Tweet{
		{ID: "10"}, {ID: "11"},
	})
	if len(fresh) != 2 || duplicates != 0 {
		t.Fatalf("fresh = %d, duplicates = %d, want 2/0", len(fresh), duplicates)
	}
	for _, tw := range fresh {
		if tw.CaptureSessionID != "" {
			t.Errorf("CaptureSessionID = %q, want empty", tw.CaptureSessionID)
		}
	}
}

func TestAddTweetCount_UpdatesActiveSession(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	started, err := tracker.Start(context.Background(), model.SourceBookmarks, "")
	if err != nil {
		t.Fatal(err)
	}

	tracker.AddTweetCount(context.Background(), 5)
	tracker.AddTweetCount(context.Background(), 3)

	persisted := repo.sessions[started.ID]
	if persisted.TweetCount != 8 {
		t.Errorf("TweetCount = %d, want 8", persisted.TweetCount)
	}
}

func TestAddTweetCount_NoSessionOrZero_IsNoop(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	// セッションなし
	tracker.AddTweetCount(context.Background(), 5)
	if repo.updates != 0 {
		t.Errorf("updates = %d, want 0", repo.updates)
	}

	if _, err := tracker.Start(context.Background(), model.SourceBookmarks, ""); err != nil {
		t.Fatal(err)
	}

	// 0件加算
	before := repo.updates
	tracker.AddTweetCount(context.Background(), 0)
	if repo.updates != before {
		t.Errorf("updates = %d, want %d (no update for zero)", repo.updates, before)
	}
}

func TestAddTweetCount_UpdateError_DoesNotPanic(t *testing.T) {
	repo := newMockSessionRepo()
	tracker := newTestSessionTracker(repo)

	if _, err := tracker.Start(context.Background(), model.SourceBookmarks, ""); err != nil {
		t.Fatal(err)
	}
	repo.updateErr = errors.New("db down")

	// 進捗更新の失敗は握りつぶされる
	tracker.AddTweetCount(context.Background(), 1)

	if tracker.Active() == nil {
		t.Error("session should stay active after failed count update")
	}
}
