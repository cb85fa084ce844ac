package validator

import (
	"context"
	"sync"
	"testing"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/market"
	"tradingcore/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type stubValidator struct {
	name   string
	flag   models.Flag
	panics bool
}

func (v *stubValidator) Name() string { return v.name }

func (v *stubValidator) Evaluate(_ context.Context, _ *market.Snapshot) models.FilterReport {
	if v.panics {
		panic("boom")
	}
	return models.FilterReport{FilterName: v.name, Score: 0.5, Flag: v.flag}
}

type recordingSink struct {
	mu      sync.Mutex
	reports []models.FilterReport
}

func (s *recordingSink) RecordReport(_ context.Context, _ string, r models.FilterReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *recordingSink) RecordVerdict(_ context.Context, _ string, _ models.Verdict, _ *models.Signal) error {
	return nil
}
func (s *recordingSink) RecordTrade(_ context.Context, _ models.ActiveTrade) error { return nil }
func (s *recordingSink) Close() error                                              { return nil }

func newTestStack(t *testing.T, primary []Validator, sink *recordingSink) (*Stack, *market.MarketState) {
	t.Helper()
	state := market.NewMarketState("BTCUSDT", 10, 10, market.BookConfig{TopN: 20, WallMultiplier: 5})
	return NewStack(primary, nil, state, sink, testLogger(t)), state
}

func TestStackJoinsInInputOrder(t *testing.T) {
	sink := &recordingSink{}
	stack, _ := newTestStack(t, []Validator{
		&stubValidator{name: "a", flag: models.FlagHardPass},
		&stubValidator{name: "b", flag: models.FlagBlock},
		&stubValidator{name: "c", flag: models.FlagSoftFlag},
	}, sink)

	res := stack.RunPrimary(context.Background(), &market.Snapshot{Symbol: "BTCUSDT"})
	if len(res.Reports) != 3 {
		t.Fatalf("len(Reports) = %d, want 3", len(res.Reports))
	}
	for i, want := range []string{"a", "b", "c"} {
		if res.Reports[i].FilterName != want {
			t.Errorf("Reports[%d] = %s, want %s", i, res.Reports[i].FilterName, want)
		}
	}
	if res.Blocks != 1 || !res.Blocked() {
		t.Errorf("Blocks = %d, want 1", res.Blocks)
	}
	if len(sink.reports) != 3 {
		t.Errorf("sink received %d reports, want 3", len(sink.reports))
	}
}

func TestStackPanicExcludedFromBlocks(t *testing.T) {
	sink := &recordingSink{}
	stack, state := newTestStack(t, []Validator{
		&stubValidator{name: "ok", flag: models.FlagHardPass},
		&stubValidator{name: "bad", panics: true},
	}, sink)

	res := stack.RunPrimary(context.Background(), &market.Snapshot{Symbol: "BTCUSDT"})
	if res.Blocks != 0 {
		t.Errorf("Blocks = %d, want 0 when only a panicked filter misbehaved", res.Blocks)
	}
	if len(res.Reports) != 1 || res.Reports[0].FilterName != "ok" {
		t.Errorf("Reports = %v, want only the surviving filter", res.Reports)
	}
	if _, ok := state.Snapshot().Score("bad"); ok {
		t.Error("panicked filter must not reach the audit log")
	}
}

func TestRejectionReasonFormat(t *testing.T) {
	res := StackResult{Reports: []models.FilterReport{
		{FilterName: FilterSpoof, Flag: models.FlagBlock},
		{FilterName: FilterRetest, Flag: models.FlagHardPass},
		{FilterName: FilterLowVolumeGuard, Flag: models.FlagBlock},
	}, Blocks: 2}

	got := res.RejectionReason()
	want := "Rejected - SPOOFING, LOW VOL"
	if got != want {
		t.Errorf("RejectionReason = %q, want %q", got, want)
	}
}

func TestRejectionReasonEmptyWithoutBlocks(t *testing.T) {
	res := StackResult{Reports: []models.FilterReport{{FilterName: FilterRetest, Flag: models.FlagHardPass}}}
	if got := res.RejectionReason(); got != "" {
		t.Errorf("RejectionReason = %q, want empty", got)
	}
}

func TestRejectionCodeFallback(t *testing.T) {
	if got := RejectionCode("custom_filter"); got != "CUSTOM_FILTER" {
		t.Errorf("RejectionCode = %q, want uppercased name", got)
	}
}
