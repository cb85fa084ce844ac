package validator

import (
	"context"
	"fmt"
	"sync"

	"tradingcore/internal/domain/models"
	"tradingcore/internal/domain/repository"
	"tradingcore/internal/market"
	"tradingcore/pkg/logger"
)

// StackResult aggregates one stage of validator evaluation.
type StackResult struct {
	Reports []models.FilterReport
	Blocks  int
}

// Blocked reports whether any filter in the stage voted Block.
func (r StackResult) Blocked() bool { return r.Blocks > 0 }

// RejectionReason formats the canonical rejection summary from every
// blocking report, in input order.
func (r StackResult) RejectionReason() string {
	var codes []string
	for _, rep := range r.Reports {
		if rep.Flag == models.FlagBlock {
			codes = append(codes, RejectionCode(rep.FilterName))
		}
	}
	if len(codes) == 0 {
		return ""
	}
	return FormatRejection(codes...)
}

// Stack owns the two ordered validator stages. Filters within a stage run
// concurrently; results are joined in input order. Every report is
// appended to the market audit log and forwarded to the audit sink.
type Stack struct {
	primary    []Validator
	postSignal []Validator
	state      *market.MarketState
	sink       repository.AuditSink
	log        *logger.Logger
}

func NewStack(
	primary, postSignal []Validator,
	state *market.MarketState,
	sink repository.AuditSink,
	log *logger.Logger,
) *Stack {
	return &Stack{
		primary:    primary,
		postSignal: postSignal,
		state:      state,
		sink:       sink,
		log:        log,
	}
}

// RunPrimary evaluates the primary gate.
func (s *Stack) RunPrimary(ctx context.Context, snap *market.Snapshot) StackResult {
	return s.run(ctx, s.primary, snap)
}

// RunPostSignal evaluates the post-signal stage.
func (s *Stack) RunPostSignal(ctx context.Context, snap *market.Snapshot) StackResult {
	return s.run(ctx, s.postSignal, snap)
}

func (s *Stack) run(ctx context.Context, group []Validator, snap *market.Snapshot) StackResult {
	type slot struct {
		report models.FilterReport
		ok     bool
	}
	slots := make([]slot, len(group))

	var wg sync.WaitGroup
	for i, v := range group {
		wg.Add(1)
		go func(i int, v Validator) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("validator panicked",
						logger.String("filter", v.Name()),
						logger.Any("panic", r))
				}
			}()
			slots[i] = slot{report: v.Evaluate(ctx, snap), ok: true}
		}(i, v)
	}
	wg.Wait()

	var res StackResult
	for i := range slots {
		if !slots[i].ok {
			// a panicked filter never contributes to the block count
			continue
		}
		report := slots[i].report
		res.Reports = append(res.Reports, report)
		if report.Flag == models.FlagBlock {
			res.Blocks++
		}
		s.state.AppendReport(report)
		if s.sink != nil {
			if err := s.sink.RecordReport(ctx, snap.Symbol, report); err != nil {
				s.log.Warn(fmt.Sprintf("audit report %s failed", report.FilterName), logger.Error(err))
			}
		}
	}
	return res
}
