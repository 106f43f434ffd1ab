package capture

import (
	"testing"
	"time"
)

// newFakeClockTracker は手動で進められる時計を持つRateTrackerを返す。
func newFakeClockTracker(start time.Time) (*RateTracker, *time.Time) {
	now := start
	tracker := NewRateTracker()
	tracker.now = func() time.Time { return now }
	return tracker, &now
}

func TestRateTracker_Empty_ReturnsZeros(t *testing.T) {
	tracker, _ := newFakeClockTracker(time.Unix(1000, 0))

	stats := tracker.Stats()

	if stats != (RateStats{}) {
		t.Errorf("stats = %+v, want all zeros", stats)
	}
}

func TestRateTracker_WindowBoundaries_SplitsShortAndLong(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker, clock := newFakeClockTracker(start)

	// 55秒前: 60秒ウィンドウにのみ入る
	tracker.Observe(3)
	*clock = start.Add(20 * time.Second)
	tracker.Observe(5)
	// 5秒前: 両方のウィンドウに入る
	*clock = start.Add(50 * time.Second)
	tracker.Observe(2)

	*clock = start.Add(55 * time.Second)
	stats := tracker.Stats()

	if stats.Calls60s != 3 {
		t.Errorf("Calls60s = %d, want 3", stats.Calls60s)
	}
	if stats.Records60s != 10 {
		t.Errorf("Records60s = %d, want 10", stats.Records60s)
	}
	if stats.Calls10s != 1 {
		t.Errorf("Calls10s = %d, want 1", stats.Calls10s)
	}
	if stats.Records10s != 2 {
		t.Errorf("Records10s = %d, want 2", stats.Records10s)
	}
}

func TestRateTracker_OldObservations_ArePruned(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker, clock := newFakeClockTracker(start)

	tracker.Observe(7)
	tracker.Observe(7)

	// 61秒後には両方とも60秒ウィンドウから外れる
	*clock = start.Add(61 * time.Second)
	stats := tracker.Stats()

	if stats.Calls60s != 0 || stats.Records60s != 0 {
		t.Errorf("stats = %+v, want all zeros after window expiry", stats)
	}
	if len(tracker.observations) != 0 {
		t.Errorf("observations len = %d, want 0 (pruned)", len(tracker.observations))
	}
}

func TestRateTracker_ZeroRecordCall_CountsAsCall(t *testing.T) {
	tracker, _ := newFakeClockTracker(time.Unix(1000, 0))

	// 抽出0件の呼び出しも呼び出し回数には数える
	tracker.Observe(0)

	stats := tracker.Stats()
	if stats.Calls10s != 1 {
		t.Errorf("Calls10s = %d, want 1", stats.Calls10s)
	}
	if stats.Records10s != 0 {
		t.Errorf("Records10s = %d, want 0", stats.Records10s)
	}
}

func TestRateTracker_ExactBoundary_IncludedInShortWindow(t *testing.T) {
	start := time.Unix(1000, 0)
	tracker, clock := newFakeClockTracker(start)

	tracker.Observe(1)

	// ちょうど10秒前の観測値は短いウィンドウに含まれる
	*clock = start.Add(10 * time.Second)
	stats := tracker.Stats()

	if stats.Calls10s != 1 {
		t.Errorf("Calls10s = %d, want 1 (boundary inclusive)", stats.Calls10s)
	}
}
