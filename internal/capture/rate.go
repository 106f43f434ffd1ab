package capture

import (
	"sync"
	"time"
)

// レート観測のウィンドウ幅。保持は長い方のウィンドウに合わせる。
const (
	rateWindowShort = 10 * time.Second
	rateWindowLong  = 60 * time.Second
)

// rateObservation は1回の抽出イベントの観測値を表す。
type rateObservation struct {
	timestamp   time.Time
	recordCount int
}

// RateStats はスライディングウィンドウ集計の読み取り結果を表す。
type RateStats struct {
	// 直近10秒間の呼び出し回数と抽出レコード数合計
	Calls10s   int `json:"calls_10s"`
	Records10s int `json:"records_10s"`
	// 直近60秒間の呼び出し回数と抽出レコード数合計
	Calls60s   int `json:"calls_60s"`
	Records60s int `json:"records_60s"`
}

// RateTracker は抽出イベントのスライディングウィンドウを保持し、
// スループットの受動的な観測値を提供する。
// 純粋に観測専用であり、抽出をブロックしたり絞ったりすることはない。
type RateTracker struct {
	mu           sync.Mutex
	observations []rateObservation
	now          func() time.Time
}

// NewRateTracker はRateTrackerを生成する。
func NewRateTracker() *RateTracker {
	return &RateTracker{now: time.Now}
}

// Observe は抽出イベント1件を記録する。
// 挿入のたびに60秒より古い観測値を刈り取る。
func (t *RateTracker) Observe(recordCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.observations = append(t.observations, rateObservation{
		timestamp:   now,
		recordCount: recordCount,
	})
	t.prune(now)
}

// Stats は直近10秒・60秒ウィンドウの集計値を返す。
func (t *RateTracker) Stats() RateStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)

	var stats RateStats
	shortCutoff := now.Add(-rateWindowShort)
	for _, obs := range t.observations {
		stats.Calls60s++
		stats.Records60s += obs.recordCount
		if !obs.timestamp.Before(shortCutoff) {
			stats.Calls10s++
			stats.Records10s += obs.recordCount
		}
	}
	return stats
}

// prune は長い方のウィンドウから外れた観測値を先頭から取り除く。
// 観測値は挿入順（時刻昇順）を保っている前提。
func (t *RateTracker) prune(now time.Time) {
	cutoff := now.Add(-rateWindowLong)
	i := 0
	for i < len(t.observations) && t.observations[i].timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.observations = t.observations[i:]
	}
}
