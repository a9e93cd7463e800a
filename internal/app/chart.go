package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"lendwatch/clients/lendapi"
)

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a block-character strip. An empty series
// yields an empty string.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	var b strings.Builder
	span := max - min
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - min) / span * float64(len(sparks)-1))
		}
		b.WriteRune(sparks[idx])
	}
	return b.String()
}

// RenderHistory writes a token's rate history as a sparkline with the
// backend's trend verdict. An empty series renders a no-data message
// rather than failing.
func RenderHistory(w io.Writer, history *lendapi.TokenHistory) {
	if history == nil || len(history.Data) == 0 {
		token := ""
		if history != nil {
			token = history.Token
		}
		fmt.Fprintf(w, "no history data for %s\n", token)
		return
	}

	values := make([]float64, 0, len(history.Data))
	for _, p := range history.Data {
		values = append(values, p.NetAPR)
	}

	first := history.Data[0]
	last := history.Data[len(history.Data)-1]

	fmt.Fprintf(w, "%s net APR over %dh (%d points)\n", history.Token, history.Hours, history.Count)
	fmt.Fprintf(w, "  %s\n", Sparkline(values))
	fmt.Fprintf(w, "  %.2f%% @ %s -> %.2f%% @ %s\n", first.NetAPR, first.Timestamp, last.NetAPR, last.Timestamp)
	if history.Trend != nil {
		fmt.Fprintf(w, "  trend: %s (strength %.2f)\n", history.Trend.Trend, history.Trend.Strength)
	}
}

// ShowHistory fetches and renders one token's history on demand.
func (r *Runner) ShowHistory(ctx context.Context, w io.Writer, token string, hours int) error {
	history, err := r.clients.API.GetTokenHistory(ctx, token, hours)
	if err != nil {
		return fmt.Errorf("show history: %w", err)
	}
	RenderHistory(w, history)
	return nil
}
