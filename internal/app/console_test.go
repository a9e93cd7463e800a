package app

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"

	"lendwatch/clients/lendapi"
	"lendwatch/internal/view"
)

func TestConsoleRenderer_RendersRowsAndKPI(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleWriter(zap.NewNop(), &buf, 25)

	snap := view.Snapshot{
		Timestamp: "2026-08-30T12:00:00",
		Opportunities: []view.Opportunity{
			{Currency: "ETH", NetAPR: 60, GateAPR: 63.2, BestLoanSource: "OKX", OKXLoanRate: 3.2, Available: true},
			{Currency: "BTC", NetAPR: 10},
		},
	}
	v := view.Build(snap, view.FilterState{LoanSize: 1000}, view.DefaultSort())

	r.Render(v, TransportConnected)
	out := buf.String()

	if !strings.Contains(out, "ETH") || !strings.Contains(out, "BTC") {
		t.Errorf("expected both tokens in output:\n%s", out)
	}
	if !strings.Contains(out, "best 60.00%") {
		t.Errorf("expected KPI line in output:\n%s", out)
	}
	if !strings.Contains(out, "2 of 2 shown") {
		t.Errorf("expected row count line in output:\n%s", out)
	}
	if !strings.Contains(out, "connected") {
		t.Errorf("expected transport state in output:\n%s", out)
	}
}

func TestConsoleRenderer_EmptyResultShowsPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleWriter(zap.NewNop(), &buf, 25)

	snap := view.Snapshot{
		Opportunities: []view.Opportunity{{Currency: "ETH", NetAPR: 60}},
	}
	v := view.Build(snap, view.FilterState{Search: "XRP"}, view.DefaultSort())

	r.Render(v, TransportConnected)
	out := buf.String()

	if !strings.Contains(out, "no matches") {
		t.Errorf("expected placeholder row:\n%s", out)
	}
	if !strings.Contains(out, "0 of 1 shown") {
		t.Errorf("expected zero filtered count with full total:\n%s", out)
	}
}

func TestConsoleRenderer_MaxRowsCap(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleWriter(zap.NewNop(), &buf, 1)

	snap := view.Snapshot{
		Opportunities: []view.Opportunity{
			{Currency: "ETH", NetAPR: 60},
			{Currency: "BTC", NetAPR: 10},
		},
	}
	v := view.Build(snap, view.FilterState{}, view.DefaultSort())

	r.Render(v, TransportConnected)
	out := buf.String()

	if !strings.Contains(out, "ETH") {
		t.Errorf("expected top row rendered:\n%s", out)
	}
	if strings.Contains(out, "BTC") {
		t.Errorf("expected second row capped:\n%s", out)
	}
}

func TestConsoleRenderer_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleWriter(zap.NewNop(), &buf, 25)

	regions := NewStatusRegions()
	regions.setCollector(CollectorRegion{
		Online: true,
		Stats:  &lendapi.CollectorStats{TotalObservations: 150000, UniqueTokens: 85},
	})
	regions.setBot(BotRegion{
		Online: true,
		Status: &lendapi.BotStatus{Running: true, PID: 4242, StatusMsg: "Sniping ETH"},
	})
	regions.setSession(SessionRegion{
		Online:  true,
		Session: &lendapi.BrowserSession{SessionExists: true, CookieCount: 12},
		Age:     "2d",
		Stale:   true,
	})

	r.RenderStatus(regions)
	out := buf.String()

	if !strings.Contains(out, "collector: 150000 observations, 85 tokens") {
		t.Errorf("unexpected collector line:\n%s", out)
	}
	if !strings.Contains(out, "bot: running (pid 4242) Sniping ETH") {
		t.Errorf("unexpected bot line:\n%s", out)
	}
	if !strings.Contains(out, "session: 2d old, 12 cookies (stale)") {
		t.Errorf("unexpected session line:\n%s", out)
	}
}

func TestConsoleRenderer_OfflineRegions(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleWriter(zap.NewNop(), &buf, 25)

	r.RenderStatus(NewStatusRegions())
	out := buf.String()

	for _, want := range []string{"collector: offline", "bot: offline", "session: offline"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
