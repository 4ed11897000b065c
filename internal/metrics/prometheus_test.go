package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusCountersAreExposed(t *testing.T) {
	p := NewPrometheus()
	p.Metrics.OrdersPlaced.Inc()
	p.Metrics.ModifiesSubmitted.Inc()
	p.Metrics.ModifiesSubmitted.Inc()
	p.Metrics.FillsApplied.Inc()

	server := httptest.NewServer(p.Handler())
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	if err != nil {
		t.Fatalf("scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	text := string(body)

	for _, want := range []string{
		"hl_chase_bot_orders_placed_total 1",
		"hl_chase_bot_modifies_submitted_total 2",
		"hl_chase_bot_modifies_rejected_total 0",
		"hl_chase_bot_fills_applied_total 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("scrape missing %q:\n%s", want, text)
		}
	}
}

func TestNoopMetricsNeverPanic(t *testing.T) {
	m := NewNoop()
	m.OrdersPlaced.Inc()
	m.ModifiesSubmitted.Inc()
	m.ModifiesRejected.Inc()
	m.FillsApplied.Inc()
}
