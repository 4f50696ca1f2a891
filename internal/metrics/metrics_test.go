package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGaugesReflectCounters(t *testing.T) {
	m := New()
	m.FramesProcessed.Add(3)
	m.Commits.Add(2)
	m.Stage.Store(4)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	values := make(map[string]float64)
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}

	tests := map[string]float64{
		"arbox_frames_processed_total": 3,
		"arbox_commits_total":          2,
		"arbox_capture_stage":          4,
		"arbox_undos_total":            0,
	}
	for name, want := range tests {
		if got, ok := values[name]; !ok || got != want {
			t.Errorf("%s = %v (present %v), want %v", name, got, ok, want)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.UpdateProcessLatency(1500 * time.Microsecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, "arbox_process_latency_us 1500") {
		t.Errorf("latency gauge missing from output:\n%s", body)
	}
}
