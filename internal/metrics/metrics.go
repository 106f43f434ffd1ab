// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// キャプチャパイプラインから利用する。
type MetricsCollector interface {
	RecordResponseProcessed(source string)
	RecordParseFailure(source string)
	RecordUnmatchedURL()
	RecordTweetsExtracted(count int)
	RecordTweetsStored(count int)
	RecordTweetsDuplicate(count int)
	RecordExtractLatency(duration time.Duration)
	SetRateWindow(calls10s, records10s, calls60s, records60s int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	responsesProcessed *prometheus.CounterVec
	parseFail          *prometheus.CounterVec
	unmatchedURLs      prometheus.Counter
	tweetsExtracted    prometheus.Counter
	tweetsStored       prometheus.Counter
	tweetsDuplicate    prometheus.Counter
	extractLatency     prometheus.Histogram
	rateWindow         *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		responsesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tweetman_responses_processed_total",
			Help: "処理したAPIレスポンスのソース別合計数",
		}, []string{"source"}),
		parseFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tweetman_parse_fail_total",
			Help: "ボディ解析失敗のソース別合計数",
		}, []string{"source"}),
		unmatchedURLs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetman_unmatched_urls_total",
			Help: "既知のエンドポイントパターンに一致しなかったURLの合計数",
		}),
		tweetsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetman_tweets_extracted_total",
			Help: "抽出されたツイートの合計数",
		}),
		tweetsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetman_tweets_stored_total",
			Help: "新規に保存されたツイートの合計数",
		}),
		tweetsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tweetman_tweets_duplicate_total",
			Help: "重複としてスキップされたツイートの合計数",
		}),
		extractLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tweetman_extract_latency_seconds",
			Help:    "1レスポンスの抽出処理レイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		rateWindow: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tweetman_rate_window",
			Help: "抽出イベントのスライディングウィンドウ観測値",
		}, []string{"window", "kind"}),
	}

	reg.MustRegister(
		c.responsesProcessed,
		c.parseFail,
		c.unmatchedURLs,
		c.tweetsExtracted,
		c.tweetsStored,
		c.tweetsDuplicate,
		c.extractLatency,
		c.rateWindow,
	)

	return c
}

// RecordResponseProcessed はレスポンス処理1件を記録する。
func (c *Collector) RecordResponseProcessed(source string) {
	c.responsesProcessed.WithLabelValues(source).Inc()
}

// RecordParseFailure はボディ解析失敗を記録する。
func (c *Collector) RecordParseFailure(source string) {
	c.parseFail.WithLabelValues(source).Inc()
}

// RecordUnmatchedURL はパターン不一致URLを記録する。
func (c *Collector) RecordUnmatchedURL() {
	c.unmatchedURLs.Inc()
}

// RecordTweetsExtracted は抽出ツイート数を記録する。
func (c *Collector) RecordTweetsExtracted(count int) {
	c.tweetsExtracted.Add(float64(count))
}

// RecordTweetsStored は新規保存ツイート数を記録する。
func (c *Collector) RecordTweetsStored(count int) {
	c.tweetsStored.Add(float64(count))
}

// RecordTweetsDuplicate は重複スキップ数を記録する。
func (c *Collector) RecordTweetsDuplicate(count int) {
	c.tweetsDuplicate.Add(float64(count))
}

// RecordExtractLatency は抽出処理のレイテンシを記録する。
func (c *Collector) RecordExtractLatency(duration time.Duration) {
	c.extractLatency.Observe(duration.Seconds())
}

// SetRateWindow はスライディングウィンドウ観測値をゲージへ反映する。
func (c *Collector) SetRateWindow(calls10s, records10s, calls60s, records60s int) {
	c.rateWindow.WithLabelValues("10s", "calls").Set(float64(calls10s))
	c.rateWindow.WithLabelValues("10s", "records").Set(float64(records10s))
	c.rateWindow.WithLabelValues("60s", "calls").Set(float64(calls60s))
	c.rateWindow.WithLabelValues("60s", "records").Set(float64(records60s))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
