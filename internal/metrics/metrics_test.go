package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordResponseProcessed_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordResponseProcessed("bookmarks")
	c.RecordResponseProcessed("bookmarks")
	c.RecordResponseProcessed("search")

	got := testutil.ToFloat64(c.responsesProcessed.WithLabelValues("bookmarks"))
	if got != 2 {
		t.Errorf("bookmarksのカウントが不正: got %v, want 2", got)
	}
	got = testutil.ToFloat64(c.responsesProcessed.WithLabelValues("search"))
	if got != 1 {
		t.Errorf("searchのカウントが不正: got %v, want 1", got)
	}
}

func TestCollector_RecordTweetCounts_AddsByBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTweetsExtracted(5)
	c.RecordTweetsStored(3)
	c.RecordTweetsDuplicate(2)
	c.RecordTweetsExtracted(1)

	if got := testutil.ToFloat64(c.tweetsExtracted); got != 6 {
		t.Errorf("extractedが不正: got %v, want 6", got)
	}
	if got := testutil.ToFloat64(c.tweetsStored); got != 3 {
		t.Errorf("storedが不正: got %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.tweetsDuplicate); got != 2 {
		t.Errorf("duplicateが不正: got %v, want 2", got)
	}
}

func TestCollector_SetRateWindow_SetsAllGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetRateWindow(1, 2, 3, 10)

	cases := []struct {
		window string
		kind   string
		want   float64
	}{
		{"10s", "calls", 1},
		{"10s", "records", 2},
		{"60s", "calls", 3},
		{"60s", "records", 10},
	}
	for _, tc := range cases {
		got := testutil.ToFloat64(c.rateWindow.WithLabelValues(tc.window, tc.kind))
		if got != tc.want {
			t.Errorf("rate_window{window=%q,kind=%q} = %v, want %v", tc.window, tc.kind, got, tc.want)
		}
	}
}

func TestCollector_RecordExtractLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordExtractLatency(50 * time.Millisecond)
	c.RecordExtractLatency(150 * time.Millisecond)

	if got := testutil.CollectAndCount(c.extractLatency); got != 1 {
		t.Errorf("ヒストグラムのメトリクス数が不正: got %d, want 1", got)
	}
}

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordResponseProcessed("usertweets")
	c.RecordParseFailure("usertweets")
	c.RecordUnmatchedURL()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコードが不正: got %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, name := range []string{
		"tweetman_responses_processed_total",
		"tweetman_parse_fail_total",
		"tweetman_unmatched_urls_total",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("メトリクス%sが出力に含まれていない", name)
		}
	}
}
