// Package view holds the canonical opportunity schema and the pure
// filter/sort/derive pipeline that turns the latest snapshot into render
// rows and a KPI summary. Nothing in this package touches the network.
package view

import (
	"sort"
	"strings"
)

// Opportunity is one token's comparative lending/borrowing rate record
// within a single snapshot. Numeric fields absent on the wire decode to
// zero, which is also how they are displayed.
type Opportunity struct {
	Currency        string  `json:"currency"`
	GateAPR         float64 `json:"gate_apr"`
	OKXLoanRate     float64 `json:"okx_loan_rate"`
	BinanceLoanRate float64 `json:"binance_loan_rate"`
	NetAPR          float64 `json:"net_apr"`
	EffectiveEV     float64 `json:"effective_ev"`
	BestLoanSource  string  `json:"best_loan_source"`
	Available       bool    `json:"available"`
	Status          string  `json:"status"`
	OKXAvailLoan    float64 `json:"okx_avail_loan"`
}

// IsAvailable reports availability from either redundant signal. The server
// is inconsistent about whether it sends the boolean or a status string, so
// both are checked.
func (o Opportunity) IsAvailable() bool {
	if o.Available {
		return true
	}
	s := strings.ToUpper(o.Status)
	return strings.Contains(s, "AVAILABLE") && !strings.Contains(s, "NOT")
}

// EffectiveBorrowRate returns the loan rate of whichever source is best.
func (o Opportunity) EffectiveBorrowRate() float64 {
	switch strings.ToLower(o.BestLoanSource) {
	case "okx":
		return o.OKXLoanRate
	case "binance":
		return o.BinanceLoanRate
	default:
		return 0
	}
}

// DailyEarnings estimates one day of yield on loanSize at this net APR.
func (o Opportunity) DailyEarnings(loanSize float64) float64 {
	return o.NetAPR / 100 / 365 * loanSize
}

// Snapshot is the complete opportunity list as of one update timestamp.
// It replaces the prior snapshot wholesale; there is no incremental merge.
type Snapshot struct {
	Timestamp     string        `json:"timestamp"`
	Opportunities []Opportunity `json:"data"`
}

// Source filter values.
const (
	SourceAll     = "all"
	SourceOKX     = "okx"
	SourceBinance = "binance"
)

// Availability filter values.
const (
	AvailabilityAny         = "any"
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
)

// FilterState is the user-controlled row filter. Zero values mean no
// constraint for every field except LoanSize, which only feeds the
// daily-earnings column and never excludes a row.
type FilterState struct {
	Source       string  `json:"source"`
	MinNetAPR    float64 `json:"min_net_apr"`
	Search       string  `json:"search"`
	Availability string  `json:"availability"`
	LoanSize     float64 `json:"loan_size"`
}

// Sortable columns.
const (
	ColumnCurrency     = "currency"
	ColumnGateAPR      = "gate_apr"
	ColumnBorrowRate   = "borrow_rate"
	ColumnNetAPR       = "net_apr"
	ColumnEffectiveEV  = "effective_ev"
	ColumnAvailLoan    = "okx_avail_loan"
	ColumnDailyEarning = "daily_earnings"
)

// SortState is a (column, direction) pair. The default is net APR
// descending.
type SortState struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

// DefaultSort returns the default sort state.
func DefaultSort() SortState {
	return SortState{Column: ColumnNetAPR, Ascending: false}
}

// Row is one rendered table row with its derived fields. Derived fields
// are computed per build, never stored back into the snapshot.
type Row struct {
	Currency        string  `json:"currency"`
	GateAPR         float64 `json:"gate_apr"`
	EffectiveBorrow float64 `json:"effective_borrow"`
	NetAPR          float64 `json:"net_apr"`
	EffectiveEV     float64 `json:"effective_ev"`
	BestLoanSource  string  `json:"best_loan_source"`
	Available       bool    `json:"available"`
	OKXAvailLoan    float64 `json:"okx_avail_loan"`
	DailyEarnings   float64 `json:"daily_earnings"`
}

// KPI is the summary strip computed over the UNFILTERED snapshot, so it
// reports on the market rather than on the current filter.
type KPI struct {
	BestNetAPR float64 `json:"best_net_apr"`
	Count      int     `json:"count"`
	UpdatedAt  string  `json:"updated_at"`
}

// View is the output of one build pass.
type View struct {
	Rows          []Row `json:"rows"`
	FilteredCount int   `json:"filtered_count"`
	KPI           KPI   `json:"kpi"`
}

// Build runs the full pipeline: filter, stable sort, derive. It is a pure
// function of its inputs; a new snapshot or any filter/sort change calls
// for a full rebuild, never an incremental patch.
func Build(snap Snapshot, filter FilterState, sortState SortState) View {
	kept := make([]Opportunity, 0, len(snap.Opportunities))
	for _, opp := range snap.Opportunities {
		if passes(opp, filter) {
			kept = append(kept, opp)
		}
	}

	sortOpportunities(kept, sortState, filter.LoanSize)

	rows := make([]Row, 0, len(kept))
	for _, opp := range kept {
		rows = append(rows, Row{
			Currency:        opp.Currency,
			GateAPR:         opp.GateAPR,
			EffectiveBorrow: opp.EffectiveBorrowRate(),
			NetAPR:          opp.NetAPR,
			EffectiveEV:     opp.EffectiveEV,
			BestLoanSource:  opp.BestLoanSource,
			Available:       opp.IsAvailable(),
			OKXAvailLoan:    opp.OKXAvailLoan,
			DailyEarnings:   opp.DailyEarnings(filter.LoanSize),
		})
	}

	return View{
		Rows:          rows,
		FilteredCount: len(rows),
		KPI:           SummarizeKPI(snap),
	}
}

// SummarizeKPI computes the KPI strip over the full snapshot, independent
// of the current filters.
func SummarizeKPI(snap Snapshot) KPI {
	best := 0.0
	for i, opp := range snap.Opportunities {
		if i == 0 || opp.NetAPR > best {
			best = opp.NetAPR
		}
	}
	return KPI{
		BestNetAPR: best,
		Count:      len(snap.Opportunities),
		UpdatedAt:  snap.Timestamp,
	}
}

// passes is a conjunction of independent predicates. Each predicate is
// skipped entirely when its control sits at the no-constraint value.
func passes(opp Opportunity, f FilterState) bool {
	if f.Source != "" && f.Source != SourceAll {
		if !strings.EqualFold(opp.BestLoanSource, f.Source) {
			return false
		}
	}

	if f.MinNetAPR > 0 && opp.NetAPR < f.MinNetAPR {
		return false
	}

	if f.Search != "" {
		if !strings.Contains(strings.ToLower(opp.Currency), strings.ToLower(f.Search)) {
			return false
		}
	}

	switch f.Availability {
	case AvailabilityAvailable:
		if !opp.IsAvailable() {
			return false
		}
	case AvailabilityUnavailable:
		if opp.IsAvailable() {
			return false
		}
	}

	return true
}

func sortOpportunities(opps []Opportunity, s SortState, loanSize float64) {
	column := s.Column
	if column == "" {
		column = ColumnNetAPR
	}

	if column == ColumnCurrency {
		// The one textual column. Case-sensitive byte ordering, stable.
		sort.SliceStable(opps, func(i, j int) bool {
			if s.Ascending {
				return opps[i].Currency < opps[j].Currency
			}
			return opps[i].Currency > opps[j].Currency
		})
		return
	}

	key := numericKey(column, loanSize)
	sort.SliceStable(opps, func(i, j int) bool {
		if s.Ascending {
			return key(opps[i]) < key(opps[j])
		}
		return key(opps[i]) > key(opps[j])
	})
}

// numericKey maps a column name to its sort key. Missing values decoded as
// zero compare as zero, which is the required treatment.
func numericKey(column string, loanSize float64) func(Opportunity) float64 {
	switch column {
	case ColumnGateAPR:
		return func(o Opportunity) float64 { return o.GateAPR }
	case ColumnBorrowRate:
		return func(o Opportunity) float64 { return o.EffectiveBorrowRate() }
	case ColumnEffectiveEV:
		return func(o Opportunity) float64 { return o.EffectiveEV }
	case ColumnAvailLoan:
		return func(o Opportunity) float64 { return o.OKXAvailLoan }
	case ColumnDailyEarning:
		return func(o Opportunity) float64 { return o.DailyEarnings(loanSize) }
	default:
		return func(o Opportunity) float64 { return o.NetAPR }
	}
}
