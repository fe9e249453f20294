package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsToolCalls(t *testing.T) {
	rec := NewRecorder(nil)
	rec.RecordTool("get_table", 5*time.Millisecond, false)
	rec.RecordTool("get_table", 7*time.Millisecond, false)
	rec.RecordTool("faab_bids", time.Second, true)

	if got := testutil.ToFloat64(rec.toolCalls.WithLabelValues("get_table", OutcomeOK)); got != 2 {
		t.Errorf("expected 2 ok get_table calls, got %v", got)
	}
	if got := testutil.ToFloat64(rec.toolCalls.WithLabelValues("faab_bids", OutcomeError)); got != 1 {
		t.Errorf("expected 1 failed faab_bids call, got %v", got)
	}
	if got := testutil.CollectAndCount(rec.toolTime); got != 2 {
		t.Errorf("expected latency series for 2 tools, got %d", got)
	}
}

func TestRecorderCountsIngestions(t *testing.T) {
	rec := NewRecorder(nil)
	rec.RecordIngestion("merged")
	rec.RecordIngestion("clarification_needed")
	rec.RecordIngestion("merged")

	if got := testutil.ToFloat64(rec.ingestions.WithLabelValues("merged")); got != 2 {
		t.Errorf("expected 2 merged ingestions, got %v", got)
	}
}

func TestPlayersGaugeIsSampled(t *testing.T) {
	n := 3
	rec := NewRecorder(func() int { return n })
	if got := testutil.CollectAndCount(rec.reg, "playcall_players"); got != 1 {
		t.Fatalf("expected players gauge registered, got %d series", got)
	}
	n = 7

	ts := httptest.NewServer(rec.Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	mfs, err := rec.reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "playcall_players" {
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
				t.Errorf("expected gauge to read 7, got %v", got)
			}
			return
		}
	}
	t.Error("players gauge missing from gather")
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.RecordTool("reset", time.Millisecond, false)
	rec.RecordIngestion("merged")

	rr := httptest.NewRecorder()
	rec.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 from nil recorder, got %d", rr.Code)
	}
}
