package redis

import (
	"testing"

	"tzweb/internal/domain/model"
)

func TestNewDefaultsKeys(t *testing.T) {
	r := New(nil, "", 0, "", "")
	if r.keyPositions != "tzweb:positions" || r.keyOrders != "tzweb:orders" {
		t.Errorf("unexpected hash keys: %s %s", r.keyPositions, r.keyOrders)
	}
	if r.cancelStream != "tzweb:cancels" || r.cancelChan != "tzweb:cancels:pub" {
		t.Errorf("unexpected stream/channel: %s %s", r.cancelStream, r.cancelChan)
	}

	r = New(nil, "acct1", 0, "custom:stream", "")
	if r.cancelStream != "custom:stream" || r.cancelChan != "acct1:cancels:pub" {
		t.Errorf("unexpected overrides: %s %s", r.cancelStream, r.cancelChan)
	}
}

func TestRecordFromStreamValues(t *testing.T) {
	rec := recordFromValues(map[string]any{
		"id":         "c1",
		"symbol":     "AAPL",
		"order_type": "LMT",
		"order_id":   "7",
		"outcome":    model.CancelOutcomeSkipped,
		"reason":     "stale",
		"ts_ms":      "1700000000000",
	})
	want := model.CancelRecord{ID: "c1", Symbol: "AAPL", OrderType: "LMT", OrderID: "7",
		Outcome: model.CancelOutcomeSkipped, Reason: "stale", Ts: 1700000000000}
	if rec != want {
		t.Errorf("got %+v, want %+v", rec, want)
	}
}
