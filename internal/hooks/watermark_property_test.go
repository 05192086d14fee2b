package hooks

import (
	"testing"

	"pgregory.net/rapid"
)

// TestProperty33_WatermarkLastWriteWins verifies that after any sequence of
// Set calls the stored watermark equals the last value written.
func TestProperty33_WatermarkLastWriteWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tracker := NewWatermarkTracker(t.TempDir())
		sessionID := rapid.StringMatching(`[a-f0-9-]{1,36}`).Draw(rt, "session_id")
		values := rapid.SliceOfN(rapid.StringMatching(`[a-f0-9-]{1,36}`), 1, 10).Draw(rt, "values")

		for _, v := range values {
			if err := tracker.Set(sessionID, v); err != nil {
				rt.Fatalf("Set(%q): %v", v, err)
			}
		}
		got, err := tracker.Get(sessionID)
		if err != nil {
			rt.Fatalf("Get: %v", err)
		}
		if want := values[len(values)-1]; got != want {
			rt.Fatalf("Get = %q, want %q", got, want)
		}
	})
}
