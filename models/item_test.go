package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStockStatusOf(t *testing.T) {
	reorder := decimal.NewFromInt(10)
	cases := []struct {
		qty  int64
		want StockStatus
	}{
		{0, StockStatusOut},
		{-3, StockStatusOut},
		{1, StockStatusLow},
		{10, StockStatusLow},
		{11, StockStatusMedium},
		{20, StockStatusMedium},
		{21, StockStatusIn},
		{500, StockStatusIn},
	}
	for _, tc := range cases {
		got := StockStatusOf(decimal.NewFromInt(tc.qty), reorder)
		if got != tc.want {
			t.Errorf("StockStatusOf(%d, 10) = %q, want %q", tc.qty, got, tc.want)
		}
	}
}

func TestStockStatusOfZeroReorderLevel(t *testing.T) {
	// With no reorder level configured, any positive quantity is in stock.
	got := StockStatusOf(decimal.NewFromInt(1), decimal.Zero)
	if got != StockStatusIn {
		t.Errorf("qty 1, reorder 0 = %q, want %q", got, StockStatusIn)
	}
	if got := StockStatusOf(decimal.Zero, decimal.Zero); got != StockStatusOut {
		t.Errorf("qty 0, reorder 0 = %q, want %q", got, StockStatusOut)
	}
}
