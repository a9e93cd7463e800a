package app

import (
	"sync"

	"lendwatch/config"
	"lendwatch/internal/view"
)

// ViewState owns the user-controlled filter and sort state. It is mutated
// only through these methods, read on every render pass, never persisted.
type ViewState struct {
	mu     sync.RWMutex
	filter view.FilterState
	sort   view.SortState
}

func NewViewState(cfg config.ViewConfig) *ViewState {
	return &ViewState{
		filter: view.FilterState{
			Source:       cfg.Source,
			MinNetAPR:    cfg.MinNetAPR,
			Availability: cfg.Availability,
			LoanSize:     cfg.LoanSize,
		},
		sort: view.SortState{
			Column:    cfg.SortColumn,
			Ascending: cfg.SortAsc,
		},
	}
}

// Get returns the current filter and sort state.
func (v *ViewState) Get() (view.FilterState, view.SortState) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.filter, v.sort
}

// SetFilter replaces the filter state.
func (v *ViewState) SetFilter(f view.FilterState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filter = f
}

// SetSort replaces the sort state.
func (v *ViewState) SetSort(s view.SortState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = s
}

// ToggleSort sorts by column, flipping direction when the column is
// already active. A fresh column starts descending, matching the default.
func (v *ViewState) ToggleSort(column string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.sort.Column == column {
		v.sort.Ascending = !v.sort.Ascending
		return
	}
	v.sort = view.SortState{Column: column, Ascending: false}
}
