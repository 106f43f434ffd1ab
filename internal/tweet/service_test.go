package tweet

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/tweetman/internal/model"
	"github.com/hitoshi/tweetman/internal/repository"
)

// --- テスト用モック ---

// mockTweetRepo はサービステスト用のTweetRepositoryモック。
type mockTweetRepo struct {
	listBySourceFn       func(ctx context.Context, category model.SourceCategory, limit int) ([]*model.Tweet, error)
	searchFn             func(ctx context.Context, term string, category model.SourceCategory, limit int) ([]*model.Tweet, error)
	countAllFn           func(ctx context.Context) (int, error)
	countBySourceFn      func(ctx context.Context) (map[model.SourceCategory]int, error)
	countUniqueAuthorsFn func(ctx context.Context) (int, error)
	deleteByIDFn         func(ctx context.Context, id string) (bool, error)
	deleteAllCalled      bool
}

func (m *mockTweetRepo) StoreBatch(_ context.Context, _ []*model.Tweet) (repository.StoreResult, error) {
	return repository.StoreResult{}, nil
}

func (m *mockTweetRepo) ListBySource(ctx context.Context, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
	if m.listBySourceFn != nil {
		return m.listBySourceFn(ctx, category, limit)
	}
	return nil, nil
}

func (m *mockTweetRepo) Search(ctx context.Context, term string, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, term, category, limit)
	}
	return nil, nil
}

func (m *mockTweetRepo) CountAll(ctx context.Context) (int, error) {
	if m.countAllFn != nil {
		return m.countAllFn(ctx)
	}
	return 0, nil
}

func (m *mockTweetRepo) CountBySource(ctx context.Context) (map[model.SourceCategory]int, error) {
	if m.countBySourceFn != nil {
		return m.countBySourceFn(ctx)
	}
	return map[model.SourceCategory]int{}, nil
}

func (m *mockTweetRepo) CountUniqueAuthors(ctx context.Context) (int, error) {
	if m.countUniqueAuthorsFn != nil {
		return m.countUniqueAuthorsFn(ctx)
	}
	return 0, nil
}

func (m *mockTweetRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return false, nil
}

func (m *mockTweetRepo) DeleteAllTweets(_ context.Context) error {
	m.deleteAllCalled = true
	return nil
}

// mockSessionRepo はサービステスト用のSessionRepositoryモック。
type mockSessionRepo struct {
	listRecentFn    func(ctx context.Context, limit int) ([]*model.CaptureSession, error)
	deleteAllCalled bool
}

func (m *mockSessionRepo) Create(_ context.Context, _ *model.CaptureSession) error { return nil }
func (m *mockSessionRepo) FindByID(_ context.Context, _ string) (*model.CaptureSession, error) {
	return nil, nil
}
func (m *mockSessionRepo) Update(_ context.Context, _ *model.CaptureSession) error { return nil }

func (m *mockSessionRepo) ListRecent(ctx context.Context, limit int) ([]*model.CaptureSession, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockSessionRepo) CompleteStale(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (m *mockSessionRepo) DeleteAll(_ context.Context) error {
	m.deleteAllCalled = true
	return nil
}

func newTestService(tweetRepo *mockTweetRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(tweetRepo, sessionRepo, 100, 10000)
}

// --- List テスト ---

// TestService_List_UsesDefaultLimit はlimit未指定時に既定値が使われることをテストする。
func TestService_List_UsesDefaultLimit(t *testing.T) {
	repo := &mockTweetRepo{}
	repo.listBySourceFn = func(_ context.Context, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
		if category != "" {
			t.Errorf("category = %q, want 空文字（全ソース）", category)
		}
		if limit != 100 {
			t.Errorf("limit = %d, want 100", limit)
		}
		return []*model.Tweet{{ID: "1"}}, nil
	}

	svc := newTestService(repo, &mockSessionRepo{})
	tweets, err := svc.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(tweets) != 1 {
		t.Errorf("tweets count = %d, want 1", len(tweets))
	}
}

// TestService_List_InvalidSource_ReturnsError は未知のソース種別がエラーになることをテストする。
func TestService_List_InvalidSource_ReturnsError(t *testing.T) {
	svc := newTestService(&mockTweetRepo{}, &mockSessionRepo{})

	_, err := svc.List(context.Background(), "likes", 10)
	if err == nil {
		t.Fatal("エラーが返されるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidSource {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeInvalidSource)
	}
}

// TestService_List_ValidSource_PassesCategory は有効なソース種別がそのまま渡ることをテストする。
func TestService_List_ValidSource_PassesCategory(t *testing.T) {
	repo := &mockTweetRepo{}
	repo.listBySourceFn = func(_ context.Context, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
		if category != model.SourceBookmarks {
			t.Errorf("category = %q, want %q", category, model.SourceBookmarks)
		}
		if limit != 25 {
			t.Errorf("limit = %d, want 25", limit)
		}
		return nil, nil
	}

	svc := newTestService(repo, &mockSessionRepo{})
	if _, err := svc.List(context.Background(), "bookmarks", 25); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
}

// --- Search テスト ---

// TestService_Search_EmptyTerm_ReturnsError は空の検索語がエラーになることをテストする。
func TestService_Search_EmptyTerm_ReturnsError(t *testing.T) {
	svc := newTestService(&mockTweetRepo{}, &mockSessionRepo{})

	_, err := svc.Search(context.Background(), "", "", 10)
	if err == nil {
		t.Fatal("エラーが返されるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeInvalidRequest)
	}
}

// TestService_Search_PassesTermAndSource は検索語とソースがリポジトリへ渡ることをテストする。
func TestService_Search_PassesTermAndSource(t *testing.T) {
	repo := &mockTweetRepo{}
	repo.searchFn = func(_ context.Context, term string, category model.SourceCategory, limit int) ([]*model.Tweet, error) {
		if term != "golang" {
			t.Errorf("term = %q, want %q", term, "golang")
		}
		if category != model.SourceSearch {
			t.Errorf("category = %q, want %q", category, model.SourceSearch)
		}
		return []*model.Tweet{{ID: "1"}, {ID: "2"}}, nil
	}

	svc := newTestService(repo, &mockSessionRepo{})
	tweets, err := svc.Search(context.Background(), "golang", "search", 10)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(tweets) != 2 {
		t.Errorf("tweets count = %d, want 2", len(tweets))
	}
}

// --- GetStats テスト ---

// TestService_GetStats_AggregatesCounts は統計情報が集計されることをテストする。
func TestService_GetStats_AggregatesCounts(t *testing.T) {
	repo := &mockTweetRepo{
		countAllFn: func(_ context.Context) (int, error) { return 42, nil },
		countBySourceFn: func(_ context.Context) (map[model.SourceCategory]int, error) {
			return map[model.SourceCategory]int{
				model.SourceBookmarks: 30,
				model.SourceSearch:    12,
			}, nil
		},
		countUniqueAuthorsFn: func(_ context.Context) (int, error) { return 7, nil },
	}

	svc := newTestService(repo, &mockSessionRepo{})
	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats returned error: %v", err)
	}

	if stats.Total != 42 {
		t.Errorf("Total = %d, want 42", stats.Total)
	}
	if stats.BySource[model.SourceBookmarks] != 30 {
		t.Errorf("BySource[bookmarks] = %d, want 30", stats.BySource[model.SourceBookmarks])
	}
	if stats.UniqueAuthors != 7 {
		t.Errorf("UniqueAuthors = %d, want 7", stats.UniqueAuthors)
	}
}

// --- Delete テスト ---

// TestService_Delete_NotFound_ReturnsError は存在しないIDの削除がエラーになることをテストする。
func TestService_Delete_NotFound_ReturnsError(t *testing.T) {
	repo := &mockTweetRepo{
		deleteByIDFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
	}

	svc := newTestService(repo, &mockSessionRepo{})
	err := svc.Delete(context.Background(), "missing")
	if err == nil {
		t.Fatal("エラーが返されるべき")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTweetNotFound {
		t.Errorf("err = %v, want code %s", err, model.ErrCodeTweetNotFound)
	}
}

// TestService_Delete_Existing_Succeeds は既存レコードの削除が成功することをテストする。
func TestService_Delete_Existing_Succeeds(t *testing.T) {
	repo := &mockTweetRepo{
		deleteByIDFn: func(_ context.Context, id string) (bool, error) {
			if id != "1234" {
				t.Errorf("id = %q, want %q", id, "1234")
			}
			return true, nil
		},
	}

	svc := newTestService(repo, &mockSessionRepo{})
	if err := svc.Delete(context.Background(), "1234"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

// --- ClearTweets / ClearAll テスト ---

// TestService_ClearTweets_KeepsSessions はツイート全削除がセッション履歴を残すことをテストする。
func TestService_ClearTweets_KeepsSessions(t *testing.T) {
	tweetRepo := &mockTweetRepo{}
	sessionRepo := &mockSessionRepo{}

	svc := newTestService(tweetRepo, sessionRepo)
	if err := svc.ClearTweets(context.Background()); err != nil {
		t.Fatalf("ClearTweets returned error: %v", err)
	}

	if !tweetRepo.deleteAllCalled {
		t.Error("ツイートの全削除が呼ばれていない")
	}
	if sessionRepo.deleteAllCalled {
		t.Error("セッションは削除されないべき")
	}
}

// TestService_ClearAll_DeletesTweetsAndSessions は全削除が両テーブルに及ぶことをテストする。
func TestService_ClearAll_DeletesTweetsAndSessions(t *testing.T) {
	tweetRepo := &mockTweetRepo{}
	sessionRepo := &mockSessionRepo{}

	svc := newTestService(tweetRepo, sessionRepo)
	if err := svc.ClearAll(context.Background()); err != nil {
		t.Fatalf("ClearAll returned error: %v", err)
	}

	if !tweetRepo.deleteAllCalled {
		t.Error("ツイートの全削除が呼ばれていない")
	}
	if !sessionRepo.deleteAllCalled {
		t.Error("セッションの全削除が呼ばれていない")
	}
}

// --- ExportJSON テスト ---

// TestService_ExportJSON_ProducesBareIndentedArray はエクスポートが保存スキーマ
// そのままの整形済みJSON配列を返すことをテストする。
func TestService_ExportJSON_ProducesBareIndentedArray(t *testing.T) {
	repo := &mockTweetRepo{}
	repo.listBySourceFn = func(_ context.Context, _ model.SourceCategory, limit int) ([]*model.Tweet, error) {
		if limit != 10000 {
			t.Errorf("limit = %d, want 10000（エクスポート上限）", limit)
		}
		return []*model.Tweet{{ID: "1", FullText: "テスト"}}, nil
	}

	svc := newTestService(repo, &mockSessionRepo{})
	data, err := svc.ExportJSON(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}

	// ラッパーオブジェクトなしの配列であること
	var tweets []*model.Tweet
	if err := json.Unmarshal(data, &tweets); err != nil {
		t.Fatalf("配列として復元できない: %v (先頭: %.40s)", err, data)
	}
	if len(tweets) != 1 || tweets[0].ID != "1" {
		t.Errorf("tweets = %+v, want 1件 (ID=1)", tweets)
	}
	if data[0] != '[' {
		t.Errorf("出力の先頭 = %q, want '['", data[0])
	}
}

// TestService_ExportJSON_NoRecords_ReturnsEmptyArray はレコードなしで空配列になることをテストする。
func TestService_ExportJSON_NoRecords_ReturnsEmptyArray(t *testing.T) {
	svc := newTestService(&mockTweetRepo{}, &mockSessionRepo{})

	data, err := svc.ExportJSON(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("data = %q, want %q", data, "[]")
	}
}

// TestService_ExportJSON_InvalidSource_ReturnsError は未知のソース指定がエラーになることをテストする。
func TestService_ExportJSON_InvalidSource_ReturnsError(t *testing.T) {
	svc := newTestService(&mockTweetRepo{}, &mockSessionRepo{})

	_, err := svc.ExportJSON(context.Background(), "replies")
	if err == nil {
		t.Fatal("エラーが返されるべき")
	}
}

// --- ListSessions テスト ---

// TestService_ListSessions_ReturnsRecent はセッション履歴が返されることをテストする。
func TestService_ListSessions_ReturnsRecent(t *testing.T) {
	now := time.Now()
	sessionRepo := &mockSessionRepo{
		listRecentFn: func(_ context.Context, limit int) ([]*model.CaptureSession, error) {
			if limit != 100 {
				t.Errorf("limit = %d, want 100", limit)
			}
			return []*model.CaptureSession{
				{ID: "s1", SourceType: model.SourceBookmarks, CreatedAt: now, Status: model.SessionStatusCompleted},
			}, nil
		},
	}

	svc := newTestService(&mockTweetRepo{}, sessionRepo)
	sessions, err := svc.ListSessions(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("sessions = %+v, want 1件 (ID=s1)", sessions)
	}
}
