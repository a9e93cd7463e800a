package app

import (
	"testing"

	"lendwatch/config"
	"lendwatch/internal/view"
)

func TestViewState_DefaultsFromConfig(t *testing.T) {
	vs := NewViewState(config.ViewConfig{
		Source:       "all",
		Availability: "any",
		LoanSize:     1000,
		SortColumn:   "net_apr",
		SortAsc:      false,
	})

	filter, sortState := vs.Get()
	if filter.Source != "all" || filter.LoanSize != 1000 {
		t.Errorf("unexpected filter: %+v", filter)
	}
	if sortState.Column != view.ColumnNetAPR || sortState.Ascending {
		t.Errorf("unexpected sort: %+v", sortState)
	}
}

func TestViewState_ToggleSort(t *testing.T) {
	vs := NewViewState(config.ViewConfig{SortColumn: view.ColumnNetAPR})

	// Same column flips direction.
	vs.ToggleSort(view.ColumnNetAPR)
	_, s := vs.Get()
	if !s.Ascending {
		t.Error("expected ascending after toggle")
	}
	vs.ToggleSort(view.ColumnNetAPR)
	_, s = vs.Get()
	if s.Ascending {
		t.Error("expected descending after second toggle")
	}

	// A new column starts descending.
	vs.ToggleSort(view.ColumnCurrency)
	_, s = vs.Get()
	if s.Column != view.ColumnCurrency || s.Ascending {
		t.Errorf("unexpected sort after column switch: %+v", s)
	}
}

func TestViewState_SetFilter(t *testing.T) {
	vs := NewViewState(config.ViewConfig{})

	vs.SetFilter(view.FilterState{Search: "eth", MinNetAPR: 25})
	filter, _ := vs.Get()
	if filter.Search != "eth" || filter.MinNetAPR != 25 {
		t.Errorf("unexpected filter: %+v", filter)
	}
}
