package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"tradingcore/internal/domain/models"
	drepo "tradingcore/internal/domain/repository"

	"github.com/google/uuid"
)

// AuditSchema returns the idempotent DDL for the audit tables.
func AuditSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.filter_reports (
			id UUID,
			ts DateTime64(6),
			symbol String,
			filter_name String,
			score Float64,
			flag String,
			metrics String,
			note String
		) ENGINE=MergeTree ORDER BY (symbol, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.verdicts (
			id UUID,
			ts DateTime64(6),
			symbol String,
			action String,
			confidence Float64,
			reasoning String,
			trade_type String,
			direction String
		) ENGINE=MergeTree ORDER BY (symbol, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trades (
			id UUID,
			ts DateTime64(6),
			symbol String,
			direction String,
			trade_type String,
			entry_price Float64,
			size Float64,
			leverage Float64,
			liquidation_price Float64,
			status String,
			realized_pnl Float64,
			exit_reason String,
			dry_run UInt8
		) ENGINE=MergeTree ORDER BY (symbol, ts)`, database),
	}
}

// ClickHouseAuditStore writes append-only audit rows. Each row carries a
// microsecond-resolution timestamp made unique by a monotonic bump on
// collision.
type ClickHouseAuditStore struct {
	db       *sql.DB
	database string

	mu     sync.Mutex
	lastUS int64
}

var _ drepo.AuditSink = (*ClickHouseAuditStore)(nil)

func NewClickHouseAuditStore(db *sql.DB, database string) *ClickHouseAuditStore {
	return &ClickHouseAuditStore{db: db, database: database}
}

// uniqueTS returns a strictly increasing microsecond timestamp.
func (s *ClickHouseAuditStore) uniqueTS() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := time.Now().UnixMicro()
	if us <= s.lastUS {
		us = s.lastUS + 1
	}
	s.lastUS = us
	return time.UnixMicro(us)
}

func (s *ClickHouseAuditStore) RecordReport(ctx context.Context, symbol string, report models.FilterReport) error {
	metrics, _ := json.Marshal(report.Metrics)
	query := fmt.Sprintf(
		"INSERT INTO %s.filter_reports (id, ts, symbol, filter_name, score, flag, metrics, note) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.database)
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), s.uniqueTS(), symbol,
		report.FilterName, report.Score, string(report.Flag), string(metrics), report.Note)
	if err != nil {
		return fmt.Errorf("insert filter report: %w", err)
	}
	return nil
}

func (s *ClickHouseAuditStore) RecordVerdict(ctx context.Context, symbol string, verdict models.Verdict, signal *models.Signal) error {
	var tradeType, direction string
	if signal != nil {
		tradeType = signal.TradeType
		direction = string(signal.Direction)
	}
	query := fmt.Sprintf(
		"INSERT INTO %s.verdicts (id, ts, symbol, action, confidence, reasoning, trade_type, direction) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		s.database)
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), s.uniqueTS(), symbol,
		string(verdict.Action), verdict.Confidence, verdict.Reasoning, tradeType, direction)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

func (s *ClickHouseAuditStore) RecordTrade(ctx context.Context, trade models.ActiveTrade) error {
	dryRun := uint8(0)
	if trade.DryRun {
		dryRun = 1
	}
	query := fmt.Sprintf(
		"INSERT INTO %s.trades (id, ts, symbol, direction, trade_type, entry_price, size, leverage, liquidation_price, status, realized_pnl, exit_reason, dry_run) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.database)
	_, err := s.db.ExecContext(ctx, query,
		trade.ID, s.uniqueTS(), trade.Symbol,
		string(trade.Direction), trade.TradeType,
		trade.EntryPrice, trade.Size, trade.Leverage, trade.LiquidationPrice,
		string(trade.Status), trade.RealizedPnL, trade.ExitReason, dryRun)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *ClickHouseAuditStore) Close() error { return nil }
