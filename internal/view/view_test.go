package view

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Timestamp: "2026-08-30T12:00:00",
		Opportunities: []Opportunity{
			{Currency: "ETH", NetAPR: 60, GateAPR: 55, Available: true, BestLoanSource: "OKX", OKXLoanRate: 3.2},
			{Currency: "BTC", NetAPR: 10, Available: false, Status: "❌ NOT AVAILABLE"},
		},
	}
}

func TestBuild_MinAPRFilter(t *testing.T) {
	v := Build(sampleSnapshot(), FilterState{MinNetAPR: 50}, DefaultSort())

	require.Len(t, v.Rows, 1)
	assert.Equal(t, "ETH", v.Rows[0].Currency)
	assert.Equal(t, 1, v.FilteredCount)
}

func TestBuild_UnavailableFilter(t *testing.T) {
	v := Build(sampleSnapshot(), FilterState{Availability: AvailabilityUnavailable}, DefaultSort())

	require.Len(t, v.Rows, 1)
	assert.Equal(t, "BTC", v.Rows[0].Currency)
}

func TestBuild_EmptyFiltersDefaultOrder(t *testing.T) {
	v := Build(sampleSnapshot(), FilterState{}, DefaultSort())

	require.Len(t, v.Rows, 2)
	assert.Equal(t, "ETH", v.Rows[0].Currency)
	assert.Equal(t, "BTC", v.Rows[1].Currency)
}

func TestBuild_EveryRowSatisfiesActivePredicates(t *testing.T) {
	snap := Snapshot{
		Opportunities: []Opportunity{
			{Currency: "ETH", NetAPR: 60, BestLoanSource: "OKX", Available: true},
			{Currency: "BTC", NetAPR: 45, BestLoanSource: "Binance", Available: true},
			{Currency: "SOL", NetAPR: 80, BestLoanSource: "OKX", Available: false},
			{Currency: "DOGE", NetAPR: 5, BestLoanSource: "OKX", Available: true},
			{Currency: "BETH", NetAPR: 70, BestLoanSource: "OKX", Available: true},
		},
	}
	filter := FilterState{
		Source:       SourceOKX,
		MinNetAPR:    10,
		Search:       "eth",
		Availability: AvailabilityAvailable,
	}

	v := Build(snap, filter, DefaultSort())

	seen := map[string]bool{}
	for _, row := range v.Rows {
		seen[row.Currency] = true
	}
	assert.True(t, seen["ETH"])
	assert.True(t, seen["BETH"])
	// BTC fails source, SOL fails availability+search, DOGE fails floor+search.
	assert.Len(t, v.Rows, 2)
}

func TestBuild_SortStable(t *testing.T) {
	snap := Snapshot{
		Opportunities: []Opportunity{
			{Currency: "AAA", NetAPR: 10},
			{Currency: "BBB", NetAPR: 10},
			{Currency: "CCC", NetAPR: 10},
		},
	}
	s := SortState{Column: ColumnNetAPR, Ascending: false}

	first := Build(snap, FilterState{}, s)
	second := Build(Snapshot{Opportunities: rowsToOpps(first)}, FilterState{}, s)

	require.Equal(t, len(first.Rows), len(second.Rows))
	for i := range first.Rows {
		assert.Equal(t, first.Rows[i].Currency, second.Rows[i].Currency)
	}
	// Ties preserve input order.
	assert.Equal(t, "AAA", first.Rows[0].Currency)
	assert.Equal(t, "BBB", first.Rows[1].Currency)
	assert.Equal(t, "CCC", first.Rows[2].Currency)
}

func rowsToOpps(v View) []Opportunity {
	opps := make([]Opportunity, 0, len(v.Rows))
	for _, r := range v.Rows {
		opps = append(opps, Opportunity{Currency: r.Currency, NetAPR: r.NetAPR})
	}
	return opps
}

func TestBuild_ToggleDirectionReversesOrder(t *testing.T) {
	snap := Snapshot{
		Opportunities: []Opportunity{
			{Currency: "A", NetAPR: 30},
			{Currency: "B", NetAPR: 10},
			{Currency: "C", NetAPR: 20},
		},
	}

	desc := Build(snap, FilterState{}, SortState{Column: ColumnNetAPR, Ascending: false})
	asc := Build(snap, FilterState{}, SortState{Column: ColumnNetAPR, Ascending: true})

	require.Len(t, desc.Rows, 3)
	for i := range desc.Rows {
		assert.Equal(t, desc.Rows[i].Currency, asc.Rows[len(asc.Rows)-1-i].Currency)
	}
}

func TestBuild_CurrencySortCaseSensitive(t *testing.T) {
	snap := Snapshot{
		Opportunities: []Opportunity{
			{Currency: "eth"},
			{Currency: "BTC"},
			{Currency: "ATOM"},
		},
	}

	v := Build(snap, FilterState{}, SortState{Column: ColumnCurrency, Ascending: true})

	// Uppercase sorts before lowercase in byte order.
	require.Len(t, v.Rows, 3)
	assert.Equal(t, "ATOM", v.Rows[0].Currency)
	assert.Equal(t, "BTC", v.Rows[1].Currency)
	assert.Equal(t, "eth", v.Rows[2].Currency)
}

func TestSummarizeKPI_IgnoresFilters(t *testing.T) {
	snap := sampleSnapshot()
	v := Build(snap, FilterState{MinNetAPR: 50}, DefaultSort())

	assert.Equal(t, 60.0, v.KPI.BestNetAPR)
	assert.Equal(t, 2, v.KPI.Count)
	assert.Equal(t, "2026-08-30T12:00:00", v.KPI.UpdatedAt)
}

func TestSummarizeKPI_MissingTreatedAsZero(t *testing.T) {
	kpi := SummarizeKPI(Snapshot{Opportunities: []Opportunity{{Currency: "X"}}})
	assert.Equal(t, 0.0, kpi.BestNetAPR)
	assert.Equal(t, 1, kpi.Count)
}

func TestSummarizeKPI_AllNegative(t *testing.T) {
	kpi := SummarizeKPI(Snapshot{Opportunities: []Opportunity{
		{Currency: "AAA", NetAPR: -5},
		{Currency: "BBB", NetAPR: -12},
	}})
	assert.Equal(t, -5.0, kpi.BestNetAPR)
	assert.Equal(t, 2, kpi.Count)
}

func TestSummarizeKPI_EmptySnapshot(t *testing.T) {
	kpi := SummarizeKPI(Snapshot{})
	assert.Equal(t, 0.0, kpi.BestNetAPR)
	assert.Equal(t, 0, kpi.Count)
}

func TestDailyEarnings(t *testing.T) {
	opp := Opportunity{NetAPR: 36.5}
	earnings := opp.DailyEarnings(1000)
	assert.InDelta(t, 1.00, earnings, 0.001)
}

func TestEffectiveBorrowRate(t *testing.T) {
	tests := []struct {
		name string
		opp  Opportunity
		want float64
	}{
		{"okx best", Opportunity{BestLoanSource: "OKX", OKXLoanRate: 3.5, BinanceLoanRate: 4.0}, 3.5},
		{"binance best", Opportunity{BestLoanSource: "Binance", OKXLoanRate: 3.5, BinanceLoanRate: 2.1}, 2.1},
		{"no source", Opportunity{BestLoanSource: "None", OKXLoanRate: 3.5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opp.EffectiveBorrowRate())
		})
	}
}

func TestIsAvailable_EitherSignal(t *testing.T) {
	tests := []struct {
		name string
		opp  Opportunity
		want bool
	}{
		{"bool only", Opportunity{Available: true}, true},
		{"status available", Opportunity{Status: "✅ AVAILABLE"}, true},
		{"status not available", Opportunity{Status: "❌ NOT AVAILABLE"}, false},
		{"status not on okx", Opportunity{Status: "❌ NOT ON OKX"}, false},
		{"nothing set", Opportunity{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opp.IsAvailable())
		})
	}
}

func TestBuild_EmptyFilteredResult(t *testing.T) {
	v := Build(sampleSnapshot(), FilterState{Search: "XRP"}, DefaultSort())

	assert.Empty(t, v.Rows)
	assert.Equal(t, 0, v.FilteredCount)
	// KPIs still describe the full snapshot.
	assert.Equal(t, 2, v.KPI.Count)
}

func TestBuild_MissingNumericSortsAsZero(t *testing.T) {
	snap := Snapshot{
		Opportunities: []Opportunity{
			{Currency: "A"},
			{Currency: "B", NetAPR: -5},
			{Currency: "C", NetAPR: 5},
		},
	}

	v := Build(snap, FilterState{}, SortState{Column: ColumnNetAPR, Ascending: true})

	require.Len(t, v.Rows, 3)
	assert.Equal(t, "B", v.Rows[0].Currency)
	assert.Equal(t, "A", v.Rows[1].Currency)
	assert.Equal(t, "C", v.Rows[2].Currency)
}

func TestBuild_DailyEarningsColumnSort(t *testing.T) {
	snap := Snapshot{
		Opportunities: []Opportunity{
			{Currency: "A", NetAPR: 10},
			{Currency: "B", NetAPR: 30},
		},
	}

	v := Build(snap, FilterState{LoanSize: 500}, SortState{Column: ColumnDailyEarning, Ascending: false})

	require.Len(t, v.Rows, 2)
	assert.Equal(t, "B", v.Rows[0].Currency)
	wantB := 30.0 / 100 / 365 * 500
	assert.True(t, math.Abs(v.Rows[0].DailyEarnings-wantB) < 1e-9)
}
