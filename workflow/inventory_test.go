package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/retailops_backend/models"
	"github.com/shopspring/decimal"
)

func batch(id int, seq int, qty, cost int64) models.StockBatch {
	return models.StockBatch{
		ID:       id,
		Sequence: seq,
		Qty:      decimal.NewFromInt(qty),
		UnitCost: decimal.NewFromInt(cost),
	}
}

func TestAllocateFifoSplitsAcrossBatches(t *testing.T) {
	batches := []models.StockBatch{
		batch(1, 1, 5, 10),
		batch(2, 2, 5, 12),
	}

	allocations, remaining := allocateFifo(batches, decimal.NewFromInt(7))
	if !remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", remaining)
	}
	if len(allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(allocations))
	}
	if !allocations[0].Qty.Equal(decimal.NewFromInt(5)) || !allocations[0].UnitCost.Equal(decimal.NewFromInt(10)) {
		t.Errorf("first slice = %s @ %s, want 5 @ 10", allocations[0].Qty, allocations[0].UnitCost)
	}
	if !allocations[1].Qty.Equal(decimal.NewFromInt(2)) || !allocations[1].UnitCost.Equal(decimal.NewFromInt(12)) {
		t.Errorf("second slice = %s @ %s, want 2 @ 12", allocations[1].Qty, allocations[1].UnitCost)
	}

	// 5*10 + 2*12 = 74
	if cogs := CogsOf(allocations); !cogs.Equal(decimal.NewFromInt(74)) {
		t.Errorf("cogs = %s, want 74", cogs)
	}
}

func TestAllocateFifoExactSingleBatch(t *testing.T) {
	batches := []models.StockBatch{batch(1, 1, 5, 10)}

	allocations, remaining := allocateFifo(batches, decimal.NewFromInt(5))
	if !remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", remaining)
	}
	if len(allocations) != 1 {
		t.Fatalf("allocations = %d, want 1", len(allocations))
	}
	if !allocations[0].Qty.Equal(decimal.NewFromInt(5)) {
		t.Errorf("slice qty = %s, want 5", allocations[0].Qty)
	}
}

func TestAllocateFifoReportsShortfall(t *testing.T) {
	batches := []models.StockBatch{
		batch(1, 1, 3, 10),
		batch(2, 2, 2, 12),
	}

	allocations, remaining := allocateFifo(batches, decimal.NewFromInt(9))
	if !remaining.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("remaining = %s, want 4", remaining)
	}
	if len(allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(allocations))
	}
}

func TestAllocateFifoSkipsExhaustedLayers(t *testing.T) {
	batches := []models.StockBatch{
		batch(1, 1, 0, 10),
		batch(2, 2, 4, 12),
	}

	allocations, remaining := allocateFifo(batches, decimal.NewFromInt(2))
	if !remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", remaining)
	}
	if len(allocations) != 1 || allocations[0].BatchId != 2 {
		t.Fatalf("allocation should come from the second batch, got %+v", allocations)
	}
}
