package market

import (
	"math"
	"testing"

	"tradingcore/internal/domain/models"
)

func TestComputePressure(t *testing.T) {
	d := models.Depth{
		Bids: []models.DepthLevel{{Price: 100, Qty: 6}, {Price: 99, Qty: 4}, {Price: 98, Qty: 50}},
		Asks: []models.DepthLevel{{Price: 101, Qty: 2}, {Price: 102, Qty: 3}},
	}

	p := ComputePressure(d, 2)
	if p.BidSum != 10 {
		t.Errorf("BidSum = %v, want 10", p.BidSum)
	}
	if p.AskSum != 5 {
		t.Errorf("AskSum = %v, want 5", p.AskSum)
	}
	want := (10.0 - 5.0) / 15.0
	if math.Abs(p.Imbalance-want) > 1e-9 {
		t.Errorf("Imbalance = %v, want %v", p.Imbalance, want)
	}
}

func TestComputePressureEmptyBook(t *testing.T) {
	p := ComputePressure(models.Depth{}, 20)
	if p.Imbalance != 0 {
		t.Errorf("Imbalance = %v, want 0 on empty book", p.Imbalance)
	}
}

func TestDetectWalls(t *testing.T) {
	d := models.Depth{
		Bids: []models.DepthLevel{{Price: 100, Qty: 2}, {Price: 99, Qty: 10}, {Price: 98, Qty: 9}},
		Asks: []models.DepthLevel{{Price: 101, Qty: 1}, {Price: 102, Qty: 5}},
	}

	bids, asks := DetectWalls(d, 5)
	if len(bids) != 1 || bids[0].Price != 99 {
		t.Fatalf("bid walls = %v, want single wall at 99", bids)
	}
	if len(asks) != 1 || asks[0].Price != 102 {
		t.Fatalf("ask walls = %v, want single wall at 102", asks)
	}
}

func TestDetectWallsEmptySide(t *testing.T) {
	bids, asks := DetectWalls(models.Depth{Asks: []models.DepthLevel{{Price: 101, Qty: 1}}}, 5)
	if bids != nil {
		t.Errorf("bid walls = %v, want nil for empty side", bids)
	}
	if len(asks) != 0 {
		t.Errorf("ask walls = %v, want none", asks)
	}
}

func TestSpoofThinRateGrowth(t *testing.T) {
	if got := SpoofThinRate(10, 15, 0.5); got != 0 {
		t.Errorf("rate = %v, want 0 when walls grew", got)
	}
}

func TestSpoofThinRateWithinDistance(t *testing.T) {
	if got := SpoofThinRate(10, 9.8, 0.5); got != 0 {
		t.Errorf("rate = %v, want 0 when decrease is within distance", got)
	}
}

func TestSpoofThinRateDecrease(t *testing.T) {
	got := SpoofThinRate(100, 40, 0.5)
	if math.Abs(got-60) > 1e-9 {
		t.Errorf("rate = %v, want 60", got)
	}
}

func TestSpoofThinRateNoPriorWalls(t *testing.T) {
	if got := SpoofThinRate(0, 5, 0.5); got != 0 {
		t.Errorf("rate = %v, want 0 without prior walls", got)
	}
}
