package models

// Flag is the authoritative outcome of a single validator.
type Flag string

const (
	FlagHardPass Flag = "HARD_PASS"
	FlagSoftFlag Flag = "SOFT_FLAG"
	FlagBlock    Flag = "BLOCK"
)

// FilterReport is produced fresh by a validator each cycle and appended to
// the audit log. It is never mutated afterwards.
type FilterReport struct {
	FilterName string             `json:"filter_name"`
	Score      float64            `json:"score"`
	Flag       Flag               `json:"flag"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Note       string             `json:"note,omitempty"`
}

// Direction of a candidate or open position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Signal is a candidate trade produced by a strategy module. It lives for
// one decision cycle unless accepted.
type Signal struct {
	TradeType  string    `json:"trade_type"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	Reason     string    `json:"reason"`
}

// ProjectedCandle is one future candle range from the forecaster.
type ProjectedCandle struct {
	Time int64   `json:"time"`
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}

// ForecastResult holds the short-horizon projection and the reversal
// likelihood, clamped to [0,1].
type ForecastResult struct {
	Candles            []ProjectedCandle `json:"candles"`
	ReversalLikelihood float64           `json:"reversal_likelihood"`
}

// Action is the adjudicated decision for a cycle.
type Action string

const (
	ActionExecute   Action = "EXECUTE"
	ActionAbort     Action = "ABORT"
	ActionHold      Action = "HOLD"
	ActionReanalyze Action = "REANALYZE"
)

// Verdict is the outcome of one decision cycle.
type Verdict struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// TradeStatus of an ActiveTrade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// ActiveTrade is an open or recently closed position. Owned exclusively by
// the lifecycle manager until closed.
type ActiveTrade struct {
	ID               string      `json:"id"`
	Symbol           string      `json:"symbol"`
	Direction        Direction   `json:"direction"`
	TradeType        string      `json:"trade_type"`
	EntryPrice       float64     `json:"entry_price"`
	Size             float64     `json:"size"`
	Leverage         float64     `json:"leverage"`
	LiquidationPrice float64     `json:"liquidation_price"`
	TakeProfit       float64     `json:"take_profit"`
	StopLoss         float64     `json:"stop_loss"`
	Status           TradeStatus `json:"status"`
	RealizedPnL      float64     `json:"realized_pnl"`
	ExitReason       string      `json:"exit_reason,omitempty"`
	OpenedAt         int64       `json:"opened_at"`
	ClosedAt         int64       `json:"closed_at,omitempty"`
	DryRun           bool        `json:"dry_run"`
}

// Margin returns the position margin (notional over leverage).
func (t ActiveTrade) Margin() float64 {
	if t.Leverage <= 0 {
		return 0
	}
	return t.EntryPrice * t.Size / t.Leverage
}

// ContextPacket is the request body sent to the adjudication service.
// OpenTrade is set when an already-open position is being re-evaluated
// for a dynamic exit rather than a fresh entry.
type ContextPacket struct {
	Symbol          string             `json:"symbol"`
	Candle          Candle             `json:"candle"`
	Direction       Direction          `json:"direction"`
	TradeType       string             `json:"trade_type"`
	ReversalScore   float64            `json:"reversal_score"`
	ValidatorScores map[string]float64 `json:"validator_scores"`
	OpenTrade       *ActiveTrade       `json:"open_trade,omitempty"`
}
